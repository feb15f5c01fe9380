package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func registerNavigationHandlers(api huma.API, svc Service) {
	type navigateInput struct {
		Body struct {
			Input string `json:"input" doc:"URL, bare host or search text typed into the address bar"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "navigate", Method: http.MethodPost, Path: "/api/v1/navigate", Summary: "Load an address or search in the active tab", Tags: []string{"Navigation"}},
		func(ctx context.Context, input *navigateInput) (*statusOutput, error) {
			if err := svc.Navigate(ctx, input.Body.Input); err != nil {
				return nil, mapErr(err)
			}
			return okStatus(), nil
		})

	huma.Register(api, huma.Operation{OperationID: "go-back", Method: http.MethodPost, Path: "/api/v1/back", Summary: "Go back in the active tab's history", Tags: []string{"Navigation"}},
		func(ctx context.Context, input *struct{}) (*statusOutput, error) {
			if err := svc.Back(ctx); err != nil {
				return nil, mapErr(err)
			}
			return okStatus(), nil
		})

	huma.Register(api, huma.Operation{OperationID: "go-forward", Method: http.MethodPost, Path: "/api/v1/forward", Summary: "Go forward in the active tab's history", Tags: []string{"Navigation"}},
		func(ctx context.Context, input *struct{}) (*statusOutput, error) {
			if err := svc.Forward(ctx); err != nil {
				return nil, mapErr(err)
			}
			return okStatus(), nil
		})

	huma.Register(api, huma.Operation{OperationID: "reload", Method: http.MethodPost, Path: "/api/v1/reload", Summary: "Reload the active tab bypassing the cache", Tags: []string{"Navigation"}},
		func(ctx context.Context, input *struct{}) (*statusOutput, error) {
			if err := svc.Reload(ctx); err != nil {
				return nil, mapErr(err)
			}
			return okStatus(), nil
		})

	type fullscreenOutput struct {
		Body struct {
			Fullscreen bool `json:"fullscreen"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "toggle-fullscreen", Method: http.MethodPost, Path: "/api/v1/fullscreen/toggle", Summary: "Toggle window fullscreen", Tags: []string{"Window"}},
		func(ctx context.Context, input *struct{}) (*fullscreenOutput, error) {
			on, err := svc.ToggleFullscreen(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &fullscreenOutput{}
			out.Body.Fullscreen = on
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "get-fullscreen", Method: http.MethodGet, Path: "/api/v1/fullscreen", Summary: "Get window fullscreen state", Tags: []string{"Window"}},
		func(ctx context.Context, input *struct{}) (*fullscreenOutput, error) {
			on, err := svc.Fullscreen(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &fullscreenOutput{}
			out.Body.Fullscreen = on
			return out, nil
		})
}
