// Package schema はリクエストボディをJSON Schemaで検証してからデコードする。
package schema

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/goccy/go-json"
	"github.com/xeipuuv/gojsonschema"
)

// リクエストボディのスキーマID
const (
	PostCreate   = "post.create"
	PostUpdate   = "post.update"
	MemoryCreate = "memory.create"
	MemoryUpdate = "memory.update"
	TagCreate    = "tag.create"
	TagUpdate    = "tag.update"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// ValidationError はドキュメントがスキーマに適合しないことを表す。
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return "invalid request body"
	}
	return strings.Join(e.Details, "; ")
}

// Validator は$idごとにコンパイル済みのスキーマを保持する。
type Validator struct {
	schemas map[string]*gojsonschema.Schema
}

// NewValidator は埋め込みスキーマからValidatorを生成する。
func NewValidator() (*Validator, error) {
	entries, err := fs.ReadDir(schemaFS, "schemas")
	if err != nil {
		return nil, fmt.Errorf("cannot read schema dir: %w", err)
	}

	var docs []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		b, err := schemaFS.ReadFile("schemas/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("cannot read schema %s: %w", e.Name(), err)
		}
		docs = append(docs, string(b))
	}
	return NewValidatorFromStrings(docs)
}

// NewValidatorFromStrings は文字列のスキーマ群からValidatorを生成する。各スキーマは$idを持つ必要がある。
func NewValidatorFromStrings(docs []string) (*Validator, error) {
	v := &Validator{schemas: make(map[string]*gojsonschema.Schema)}
	for _, doc := range docs {
		var head struct {
			ID string `json:"$id"`
		}
		if err := json.Unmarshal([]byte(doc), &head); err != nil {
			return nil, fmt.Errorf("parse error in schema: %w", err)
		}
		if head.ID == "" {
			return nil, errors.New("schema does not contain $id")
		}

		compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(doc))
		if err != nil {
			return nil, fmt.Errorf("cannot compile schema %s: %w", head.ID, err)
		}
		v.schemas[head.ID] = compiled
	}
	return v, nil
}

// HasSchema は指定IDのスキーマが登録されているかを返す。
func (v *Validator) HasSchema(id string) bool {
	_, ok := v.schemas[id]
	return ok
}

// Validate はJSONドキュメントをスキーマで検証する。
// 不正なJSONやスキーマ違反は*ValidationErrorとして返す。
func (v *Validator) Validate(id string, body []byte) error {
	s, ok := v.schemas[id]
	if !ok {
		return fmt.Errorf("there is no schema %s", id)
	}

	result, err := s.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return &ValidationError{Details: []string{"malformed JSON"}}
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return &ValidationError{Details: details}
	}
	return nil
}

// Decode はボディを検証した上でdstにデコードする。
func (v *Validator) Decode(id string, body []byte, dst any) error {
	if err := v.Validate(id, body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return &ValidationError{Details: []string{"malformed JSON"}}
	}
	return nil
}
