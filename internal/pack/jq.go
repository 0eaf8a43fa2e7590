package pack

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/itchyny/gojq"
)

// JQPackName is the name scripts pass to Require.
const JQPackName = "jq"

// JQPack exposes jq queries to scripts.
type JQPack struct {
	ctx *JQ
}

func NewJQPack() *JQPack {
	return &JQPack{ctx: &JQ{cache: map[string]*gojq.Code{}}}
}

func (p *JQPack) Name() string { return JQPackName }

// Initialize imports encoding/json; query inputs and results are JSON shaped.
func (p *JQPack) Initialize(s *Session) error {
	s.ImportNamespace("encoding/json")
	return nil
}

func (p *JQPack) Context() Context { return p.ctx }

func (p *JQPack) Terminate() error {
	p.ctx.reset()
	return nil
}

// JQ runs jq programs. Compiled programs are cached by source text.
type JQ struct {
	mu    sync.Mutex
	cache map[string]*gojq.Code
}

// Query runs query against input and returns every emitted value.
// Input is normalized through JSON so that structs and typed maps work.
func (j *JQ) Query(input any, query string) ([]any, error) {
	data, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("jq: encode input: %w", err)
	}
	return j.QueryJSON(string(data), query)
}

// QueryJSON runs query against a JSON document.
func (j *JQ) QueryJSON(document, query string) ([]any, error) {
	var input any
	if err := json.Unmarshal([]byte(document), &input); err != nil {
		return nil, fmt.Errorf("jq: decode input: %w", err)
	}

	code, err := j.compile(query)
	if err != nil {
		return nil, err
	}

	results := []any{}
	iter := code.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, fmt.Errorf("jq: %w", err)
		}
		results = append(results, v)
	}
	return results, nil
}

func (j *JQ) compile(query string) (*gojq.Code, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if code, ok := j.cache[query]; ok {
		return code, nil
	}
	parsed, err := gojq.Parse(query)
	if err != nil {
		return nil, fmt.Errorf("jq: parse %q: %w", query, err)
	}
	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, fmt.Errorf("jq: compile %q: %w", query, err)
	}
	j.cache[query] = code
	return code, nil
}

func (j *JQ) cached() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.cache)
}

func (j *JQ) reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cache = map[string]*gojq.Code{}
}
