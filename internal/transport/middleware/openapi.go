package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"

	errors "github.com/frahmantamala/time2pay/internal"
	"github.com/frahmantamala/time2pay/internal/transport"
)

// OpenAPIValidator checks incoming requests against the published API
// document before they reach a handler.
type OpenAPIValidator struct {
	router   routers.Router
	basePath string
	base     *transport.BaseHandler
}

// LoadOpenAPIDocument reads and validates the document at path.
func LoadOpenAPIDocument(ctx context.Context, path string) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	return doc, nil
}

// NewOpenAPIValidator routes on paths relative to basePath; the document's
// servers are only used by the Swagger UI.
func NewOpenAPIValidator(doc *openapi3.T, basePath string, logger *slog.Logger) (*OpenAPIValidator, error) {
	doc.Servers = nil
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build openapi router: %w", err)
	}
	return &OpenAPIValidator{
		router:   router,
		basePath: strings.TrimSuffix(basePath, "/"),
		base:     transport.NewBaseHandler(logger),
	}, nil
}

func (v *OpenAPIValidator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, pathParams, err := v.findRoute(r)
		if err != nil {
			// unknown routes are left to the router's 404/405
			next.ServeHTTP(w, r)
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: pathParams,
			Route:      route,
			Options: &openapi3filter.Options{
				AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
				// multipart bodies carry the document and are checked by the upload validator
				ExcludeRequestBody: strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/"),
			},
		}

		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			v.base.Logger.Warn("request rejected by openapi validation",
				"method", r.Method,
				"path", r.URL.Path,
				"error", err)
			v.base.HandleServiceError(w, validationError(err))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (v *OpenAPIValidator) findRoute(r *http.Request) (*routers.Route, map[string]string, error) {
	if !strings.HasPrefix(r.URL.Path, v.basePath+"/") {
		return nil, nil, routers.ErrPathNotFound
	}

	u := *r.URL
	u.Path = strings.TrimPrefix(r.URL.Path, v.basePath)
	u.RawPath = ""
	relative := *r
	relative.URL = &u

	return v.router.FindRoute(&relative)
}

func validationError(err error) *errors.AppError {
	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) {
		field := "body"
		if reqErr.Parameter != nil {
			field = reqErr.Parameter.Name
		}
		reason := reqErr.Reason
		if reason == "" && reqErr.Err != nil {
			reason = reqErr.Err.Error()
		}
		return errors.NewValidationFieldError(field, reason, errors.ErrCodeValidationFailed)
	}
	return errors.NewValidationError("Request does not match the API contract.", errors.ErrCodeValidationFailed)
}
