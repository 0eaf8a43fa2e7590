package preprocess

// ParseContext accumulates the output of one preprocessing pass.
//
// A fresh context is created for every ProcessFile/ProcessScript call and is
// discarded once the Result has been built.
//
// INVARIANTS:
//   - Namespaces and References are append-only; duplicates are preserved.
//   - A canonical path appears in LoadedScripts at most once.
//   - BodyLines is in depth-first, pre-order inclusion order.
type ParseContext struct {
	Namespaces    []string
	References    []string
	LoadedScripts []string
	BodyLines     []string

	loaded map[string]struct{}
}

// NewParseContext creates an empty context.
func NewParseContext() *ParseContext {
	return &ParseContext{
		Namespaces:    []string{},
		References:    []string{},
		LoadedScripts: []string{},
		BodyLines:     []string{},
		loaded:        make(map[string]struct{}),
	}
}

// IsLoaded reports whether fullPath has already been loaded in this pass.
func (c *ParseContext) IsLoaded(fullPath string) bool {
	_, ok := c.loaded[fullPath]
	return ok
}

// MarkLoaded records fullPath as loaded. Returns false if it already was.
func (c *ParseContext) MarkLoaded(fullPath string) bool {
	if c.IsLoaded(fullPath) {
		return false
	}
	if c.loaded == nil {
		c.loaded = make(map[string]struct{})
	}
	c.loaded[fullPath] = struct{}{}
	c.LoadedScripts = append(c.LoadedScripts, fullPath)
	return true
}

// Result is the outcome of a preprocessing pass.
type Result struct {
	Namespaces    []string `json:"namespaces"`
	LoadedScripts []string `json:"loaded_scripts"`
	References    []string `json:"references"`
	Code          string   `json:"code"`
}
