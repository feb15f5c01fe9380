package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/cortex/internal/blocker"
)

func registerMiscHandlers(api huma.API, svc Service, filters FilterStatus) {
	type healthOutput struct {
		Body struct {
			Status  string `json:"status"`
			Tabs    int    `json:"tabs"`
			Blocker string `json:"blocker,omitempty"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/api/v1/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			tabs, err := svc.Tabs(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &healthOutput{}
			out.Body.Status = "ok"
			out.Body.Tabs = len(tabs)
			if filters != nil {
				out.Body.Blocker = filters.Status().State
			}
			return out, nil
		})

	if filters == nil {
		return
	}

	type filterStatusOutput struct {
		Body blocker.Status
	}
	huma.Register(api, huma.Operation{OperationID: "filter-status", Method: http.MethodGet, Path: "/api/v1/filters", Summary: "Content blocker state", Tags: []string{"Filters"}},
		func(ctx context.Context, input *struct{}) (*filterStatusOutput, error) {
			return &filterStatusOutput{Body: filters.Status()}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "refresh-filters", Method: http.MethodPost, Path: "/api/v1/filters/refresh", Summary: "Fetch the filter lists now", Description: "Forces a download of every configured list. On failure the previous rule set stays active.", Tags: []string{"Filters"}},
		func(ctx context.Context, input *struct{}) (*filterStatusOutput, error) {
			if err := svc.RefreshFilters(ctx); err != nil {
				return nil, mapErr(err)
			}
			return &filterStatusOutput{Body: filters.Status()}, nil
		})
}
