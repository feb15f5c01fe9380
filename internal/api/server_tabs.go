package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/cortex/internal/shell"
)

type tabIndexInput struct {
	Index int `path:"index" doc:"Tab position (0-based). Out of range positions are ignored."`
}

type tabIDInput struct {
	TabID string `path:"tab_id" doc:"Stable tab identifier from the tab snapshot"`
}

func registerTabHandlers(api huma.API, svc Service) {
	type newTabInput struct {
		Body struct {
			URL string `json:"url,omitempty" doc:"Address or search text. Empty opens the home page."`
		} `required:"false"`
	}
	type newTabOutput struct {
		Body struct {
			Index int `json:"index"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "new-tab", Method: http.MethodPost, Path: "/api/v1/tabs", Summary: "Open a tab and make it active", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *newTabInput) (*newTabOutput, error) {
			index, err := svc.NewTab(ctx, input.Body.URL)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &newTabOutput{}
			out.Body.Index = index
			return out, nil
		})

	type tabsOutput struct {
		Body struct {
			Tabs []shell.TabInfo `json:"tabs"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-tabs", Method: http.MethodGet, Path: "/api/v1/tabs", Summary: "List tabs in order", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *struct{}) (*tabsOutput, error) {
			tabs, err := svc.Tabs(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &tabsOutput{}
			out.Body.Tabs = tabs
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "switch-tab", Method: http.MethodPost, Path: "/api/v1/tabs/{index}/switch", Summary: "Activate the tab at a position", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *tabIndexInput) (*statusOutput, error) {
			if err := svc.SwitchTab(ctx, input.Index); err != nil {
				return nil, mapErr(err)
			}
			return okStatus(), nil
		})

	huma.Register(api, huma.Operation{OperationID: "close-tab", Method: http.MethodDelete, Path: "/api/v1/tabs/{index}", Summary: "Close the tab at a position", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *tabIndexInput) (*statusOutput, error) {
			if err := svc.CloseTab(ctx, input.Index); err != nil {
				return nil, mapErr(err)
			}
			return okStatus(), nil
		})

	huma.Register(api, huma.Operation{OperationID: "activate-tab-by-id", Method: http.MethodPost, Path: "/api/v1/tabs/by-id/{tab_id}/activate", Summary: "Activate a tab by identifier", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *tabIDInput) (*statusOutput, error) {
			id, err := shell.ParseTabID(input.TabID)
			if err != nil {
				return nil, mapErr(err)
			}
			if err := svc.ActivateTab(ctx, id); err != nil {
				return nil, mapErr(err)
			}
			return okStatus(), nil
		})

	huma.Register(api, huma.Operation{OperationID: "close-tab-by-id", Method: http.MethodDelete, Path: "/api/v1/tabs/by-id/{tab_id}", Summary: "Close a tab by identifier", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *tabIDInput) (*statusOutput, error) {
			id, err := shell.ParseTabID(input.TabID)
			if err != nil {
				return nil, mapErr(err)
			}
			if err := svc.CloseTabByID(ctx, id); err != nil {
				return nil, mapErr(err)
			}
			return okStatus(), nil
		})
}
