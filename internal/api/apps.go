package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/apppool/internal/api/models"
	"github.com/smazurov/apppool/internal/spawn"
)

func (s *Server) registerAppRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-apps",
		Method:      http.MethodGet,
		Path:        "/api/apps",
		Summary:     "List Apps",
		Description: "List cached workers by application root",
		Tags:        []string{"apps"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.AppListResponse, error) {
		roots := s.pool.AppRoots()
		apps := make([]models.WorkerData, 0, len(roots))
		for _, root := range roots {
			if w, ok := s.pool.Lookup(root); ok {
				apps = append(apps, workerData(w))
			}
		}
		return &models.AppListResponse{
			Body: models.AppListData{Apps: apps, Count: len(apps)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "get-app",
		Method:        http.MethodPost,
		Path:          "/api/apps",
		Summary:       "Get App Worker",
		Description:   "Return the worker for an application root, spawning it on first use",
		Tags:          []string{"apps"},
		Security:      withAuth(),
		DefaultStatus: http.StatusOK,
		Errors:        []int{400, 401, 422, 502},
	}, func(_ context.Context, input *models.SpawnRequest) (*models.WorkerResponse, error) {
		req := input.Body
		w, err := s.pool.Get(req.AppRoot, req.User, req.Group)
		if err != nil {
			return nil, huma.Error502BadGateway("Failed to spawn worker", err)
		}
		return &models.WorkerResponse{Body: workerData(w)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-app-output",
		Method:      http.MethodGet,
		Path:        "/api/apps/output",
		Summary:     "App Output",
		Description: "Most recent raw output of a cached worker",
		Tags:        []string{"apps"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 422},
	}, func(_ context.Context, input *models.OutputRequest) (*models.OutputResponse, error) {
		w, ok := s.pool.Lookup(input.AppRoot)
		if !ok {
			return nil, huma.Error404NotFound("No worker for application root " + input.AppRoot)
		}
		return &models.OutputResponse{
			Body: models.OutputData{
				AppRoot: w.AppRoot,
				PID:     w.PID(),
				Output:  string(w.Output()),
			},
		}, nil
	})
}

func workerData(w *spawn.Worker) models.WorkerData {
	info := w.Info()
	data := models.WorkerData{
		ID:        info.ID,
		AppRoot:   info.AppRoot,
		User:      info.User,
		Group:     info.Group,
		PID:       info.PID,
		State:     string(info.State),
		StartedAt: info.StartedAt,
		ExitCode:  info.ExitCode,
	}
	for _, pw := range w.Watchers() {
		sd := models.StreamData{Name: pw.Stream(), State: string(pw.State())}
		if err := pw.Err(); err != nil {
			sd.Error = err.Error()
		}
		data.Streams = append(data.Streams, sd)
	}
	return data
}
