package http

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/aretw0/openagi/api"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface lists the operations of api/openapi.yaml.
type ServerInterface interface {
	// (GET /health)
	GetHealth(w http.ResponseWriter, r *http.Request)
	// (GET /info)
	GetInfo(w http.ResponseWriter, r *http.Request)
	// (GET /models)
	ListModels(w http.ResponseWriter, r *http.Request)
	// (POST /workspaces)
	CreateWorkspace(w http.ResponseWriter, r *http.Request)
	// (GET /workspaces)
	ListWorkspaces(w http.ResponseWriter, r *http.Request)
	// (GET /workspaces/{workspaceId})
	GetWorkspace(w http.ResponseWriter, r *http.Request, workspaceId string)
	// (DELETE /workspaces/{workspaceId})
	DeleteWorkspace(w http.ResponseWriter, r *http.Request, workspaceId string)
	// (GET /workspaces/{workspaceId}/graph)
	GetWorkspaceGraph(w http.ResponseWriter, r *http.Request, workspaceId string, params GetWorkspaceGraphParams)
	// (POST /workspaces/{workspaceId}/nodes)
	DropNode(w http.ResponseWriter, r *http.Request, workspaceId string)
	// (DELETE /workspaces/{workspaceId}/nodes/{nodeId})
	RemoveNode(w http.ResponseWriter, r *http.Request, workspaceId string, nodeId string)
	// (POST /workspaces/{workspaceId}/edges)
	Connect(w http.ResponseWriter, r *http.Request, workspaceId string)
	// (DELETE /workspaces/{workspaceId}/edges/{edgeId})
	Disconnect(w http.ResponseWriter, r *http.Request, workspaceId string, edgeId string)
	// (GET /workspaces/{workspaceId}/input)
	GetInput(w http.ResponseWriter, r *http.Request, workspaceId string)
	// (PUT /workspaces/{workspaceId}/input)
	SetInput(w http.ResponseWriter, r *http.Request, workspaceId string)
	// (GET /workspaces/{workspaceId}/llm-config)
	GetLLMConfig(w http.ResponseWriter, r *http.Request, workspaceId string)
	// (PUT /workspaces/{workspaceId}/llm-config)
	ReplaceLLMConfig(w http.ResponseWriter, r *http.Request, workspaceId string)
	// (PATCH /workspaces/{workspaceId}/llm-config)
	SetLLMField(w http.ResponseWriter, r *http.Request, workspaceId string)
	// (GET /workspaces/{workspaceId}/validation)
	GetValidation(w http.ResponseWriter, r *http.Request, workspaceId string)
	// (POST /workspaces/{workspaceId}/run)
	RunWorkflow(w http.ResponseWriter, r *http.Request, workspaceId string)
	// (GET /workspaces/{workspaceId}/events)
	SubscribeEvents(w http.ResponseWriter, r *http.Request, workspaceId string, params SubscribeEventsParams)
}

// GetWorkspaceGraphParams defines parameters for GetWorkspaceGraph.
type GetWorkspaceGraphParams struct {
	Direction *string `form:"direction,omitempty" json:"direction,omitempty"`
}

// SubscribeEventsParams defines parameters for SubscribeEvents.
type SubscribeEventsParams struct {
	// Watch is a comma separated filter (nodes, edges, input, config, run).
	Watch *string `form:"watch,omitempty" json:"watch,omitempty"`
}

// MiddlewareFunc wraps a single operation handler.
type MiddlewareFunc func(http.Handler) http.Handler

// InvalidParamFormatError is reported when a path or query parameter cannot be bound.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

// ServerInterfaceWrapper converts HTTP requests to typed parameters.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
}

func (siw *ServerInterfaceWrapper) serve(w http.ResponseWriter, r *http.Request, fn http.HandlerFunc) {
	handler := http.Handler(fn)
	for _, middleware := range siw.HandlerMiddlewares {
		handler = middleware(handler)
	}
	handler.ServeHTTP(w, r)
}

// pathParam binds a required simple-style path parameter.
func (siw *ServerInterfaceWrapper) pathParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	var value string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &value,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: name, Err: err})
		return "", false
	}
	return value, true
}

// GetHealth operation middleware
func (siw *ServerInterfaceWrapper) GetHealth(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.GetHealth)
}

// GetInfo operation middleware
func (siw *ServerInterfaceWrapper) GetInfo(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.GetInfo)
}

// ListModels operation middleware
func (siw *ServerInterfaceWrapper) ListModels(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.ListModels)
}

// CreateWorkspace operation middleware
func (siw *ServerInterfaceWrapper) CreateWorkspace(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.CreateWorkspace)
}

// ListWorkspaces operation middleware
func (siw *ServerInterfaceWrapper) ListWorkspaces(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.ListWorkspaces)
}

// workspaceOp adapts an operation that only takes the workspace id.
func (siw *ServerInterfaceWrapper) workspaceOp(op func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workspaceId, ok := siw.pathParam(w, r, "workspaceId")
		if !ok {
			return
		}
		siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
			op(w, r, workspaceId)
		})
	}
}

// GetWorkspaceGraph operation middleware
func (siw *ServerInterfaceWrapper) GetWorkspaceGraph(w http.ResponseWriter, r *http.Request) {
	workspaceId, ok := siw.pathParam(w, r, "workspaceId")
	if !ok {
		return
	}

	var params GetWorkspaceGraphParams
	if err := runtime.BindQueryParameter("form", true, false, "direction", r.URL.Query(), &params.Direction); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "direction", Err: err})
		return
	}

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetWorkspaceGraph(w, r, workspaceId, params)
	})
}

// RemoveNode operation middleware
func (siw *ServerInterfaceWrapper) RemoveNode(w http.ResponseWriter, r *http.Request) {
	workspaceId, ok := siw.pathParam(w, r, "workspaceId")
	if !ok {
		return
	}
	nodeId, ok := siw.pathParam(w, r, "nodeId")
	if !ok {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.RemoveNode(w, r, workspaceId, nodeId)
	})
}

// Disconnect operation middleware
func (siw *ServerInterfaceWrapper) Disconnect(w http.ResponseWriter, r *http.Request) {
	workspaceId, ok := siw.pathParam(w, r, "workspaceId")
	if !ok {
		return
	}
	edgeId, ok := siw.pathParam(w, r, "edgeId")
	if !ok {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.Disconnect(w, r, workspaceId, edgeId)
	})
}

// SubscribeEvents operation middleware
func (siw *ServerInterfaceWrapper) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	workspaceId, ok := siw.pathParam(w, r, "workspaceId")
	if !ok {
		return
	}

	var params SubscribeEventsParams
	if err := runtime.BindQueryParameter("form", true, false, "watch", r.URL.Query(), &params.Watch); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "watch", Err: err})
		return
	}

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.SubscribeEvents(w, r, workspaceId, params)
	})
}

// ChiServerOptions configures HandlerWithOptions.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	Middlewares      []MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerFromMux registers the operations of si on r.
func HandlerFromMux(si ServerInterface, r chi.Router) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{BaseRouter: r})
}

// HandlerWithOptions creates an http.Handler with routing matching the OpenAPI document.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	siw := &ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandlerFunc:   options.ErrorHandlerFunc,
	}
	base := options.BaseURL

	r.Group(func(r chi.Router) {
		r.Get(base+"/health", siw.GetHealth)
		r.Get(base+"/info", siw.GetInfo)
		r.Get(base+"/models", siw.ListModels)
		r.Post(base+"/workspaces", siw.CreateWorkspace)
		r.Get(base+"/workspaces", siw.ListWorkspaces)
		r.Get(base+"/workspaces/{workspaceId}", siw.workspaceOp(si.GetWorkspace))
		r.Delete(base+"/workspaces/{workspaceId}", siw.workspaceOp(si.DeleteWorkspace))
		r.Get(base+"/workspaces/{workspaceId}/graph", siw.GetWorkspaceGraph)
		r.Post(base+"/workspaces/{workspaceId}/nodes", siw.workspaceOp(si.DropNode))
		r.Delete(base+"/workspaces/{workspaceId}/nodes/{nodeId}", siw.RemoveNode)
		r.Post(base+"/workspaces/{workspaceId}/edges", siw.workspaceOp(si.Connect))
		r.Delete(base+"/workspaces/{workspaceId}/edges/{edgeId}", siw.Disconnect)
		r.Get(base+"/workspaces/{workspaceId}/input", siw.workspaceOp(si.GetInput))
		r.Put(base+"/workspaces/{workspaceId}/input", siw.workspaceOp(si.SetInput))
		r.Get(base+"/workspaces/{workspaceId}/llm-config", siw.workspaceOp(si.GetLLMConfig))
		r.Put(base+"/workspaces/{workspaceId}/llm-config", siw.workspaceOp(si.ReplaceLLMConfig))
		r.Patch(base+"/workspaces/{workspaceId}/llm-config", siw.workspaceOp(si.SetLLMField))
		r.Get(base+"/workspaces/{workspaceId}/validation", siw.workspaceOp(si.GetValidation))
		r.Post(base+"/workspaces/{workspaceId}/run", siw.workspaceOp(si.RunWorkflow))
		r.Get(base+"/workspaces/{workspaceId}/events", siw.SubscribeEvents)
	})

	return r
}

var (
	swaggerOnce sync.Once
	swaggerDoc  *openapi3.T
	swaggerErr  error
)

// GetSwagger returns the parsed OpenAPI document.
func GetSwagger() (*openapi3.T, error) {
	swaggerOnce.Do(func() {
		loader := openapi3.NewLoader()
		swaggerDoc, swaggerErr = loader.LoadFromData(api.Spec)
	})
	return swaggerDoc, swaggerErr
}

// rawSpec returns the embedded OpenAPI document.
func rawSpec() ([]byte, error) {
	return api.Spec, nil
}
