package api

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
)

//go:embed openapi.yaml
var specYAML []byte

// Spec は埋め込まれたOpenAPIドキュメントを返す
func Spec() []byte {
	return bytes.Clone(specYAML)
}

// LoadSpec はOpenAPIドキュメントを読み込んで検証する
func LoadSpec(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	doc, err := loader.LoadFromData(specYAML)
	if err != nil {
		return nil, fmt.Errorf("OpenAPIドキュメントの読み込みに失敗: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("OpenAPIドキュメントが不正: %w", err)
	}
	return doc, nil
}

// Validator はレスポンスをOpenAPIドキュメントと照合する
type Validator struct {
	router routers.Router
}

// NewValidator は新しいValidatorを作成する
func NewValidator(ctx context.Context) (*Validator, error) {
	doc, err := LoadSpec(ctx)
	if err != nil {
		return nil, err
	}

	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("ルーターの作成に失敗: %w", err)
	}
	return &Validator{router: router}, nil
}

// ValidateResponse はreqに対するレスポンスがスキーマに従っているか検証する
// 画像レスポンスはステータスとContent-Typeのみ検証する
func (v *Validator) ValidateResponse(ctx context.Context, req *http.Request, status int, header http.Header, body []byte) error {
	route, pathParams, err := v.router.FindRoute(req)
	if err != nil {
		return fmt.Errorf("ルートが見つかりません: %w", err)
	}

	input := &openapi3filter.ResponseValidationInput{
		RequestValidationInput: &openapi3filter.RequestValidationInput{
			Request:    req,
			PathParams: pathParams,
			Route:      route,
		},
		Status: status,
		Header: header,
	}

	mediaType, _, _ := mime.ParseMediaType(header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "image/") || strings.HasPrefix(mediaType, "multipart/") {
		input.Options = &openapi3filter.Options{ExcludeResponseBody: true}
	}
	input.SetBodyBytes(body)

	return openapi3filter.ValidateResponse(ctx, input)
}
