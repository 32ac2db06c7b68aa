package api

import (
	"context"
	"errors"

	"github.com/go-kit/kit/endpoint"

	"github.com/daverage/TinyLLM/governor"
	pkgerrors "github.com/daverage/TinyLLM/pkg/errors"
)

func statusEndpoint(svc governor.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		if _, ok := request.(emptyReq); !ok {
			return statusResponse{}, errors.Join(pkgerrors.ErrValidation, pkgerrors.ErrInvalidData)
		}

		status, err := svc.Status(ctx)
		if err != nil {
			return statusResponse{}, err
		}

		return statusResponse{
			Status: status,
		}, nil
	}
}

func getConfigEndpoint(svc governor.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		if _, ok := request.(emptyReq); !ok {
			return configResponse{}, errors.Join(pkgerrors.ErrValidation, pkgerrors.ErrInvalidData)
		}

		cfg, err := svc.GetConfig(ctx)
		if err != nil {
			return configResponse{}, err
		}

		return configResponse{
			Config: cfg,
		}, nil
	}
}

func updateConfigEndpoint(svc governor.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(updateConfigReq)
		if !ok {
			return configResponse{}, errors.Join(pkgerrors.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return configResponse{}, errors.Join(pkgerrors.ErrValidation, err)
		}

		cfg, err := svc.UpdateConfig(ctx, req.Config)
		if err != nil {
			return configResponse{}, err
		}

		return configResponse{
			Config: cfg,
		}, nil
	}
}

func recommendEndpoint(svc governor.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		if _, ok := request.(emptyReq); !ok {
			return planResponse{}, errors.Join(pkgerrors.ErrValidation, pkgerrors.ErrInvalidData)
		}

		plan, err := svc.Recommend(ctx)
		if err != nil {
			return planResponse{}, err
		}

		return planResponse{
			Plan: plan,
		}, nil
	}
}

func startServerEndpoint(svc governor.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		if _, ok := request.(emptyReq); !ok {
			return statusResponse{}, errors.Join(pkgerrors.ErrValidation, pkgerrors.ErrInvalidData)
		}

		status, err := svc.StartServer(ctx)
		if err != nil {
			return statusResponse{}, err
		}

		return statusResponse{
			Status: status,
		}, nil
	}
}

func stopServerEndpoint(svc governor.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		if _, ok := request.(emptyReq); !ok {
			return statusResponse{}, errors.Join(pkgerrors.ErrValidation, pkgerrors.ErrInvalidData)
		}

		status, err := svc.StopServer(ctx)
		if err != nil {
			return statusResponse{}, err
		}

		return statusResponse{
			Status: status,
		}, nil
	}
}

func restartServerEndpoint(svc governor.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		if _, ok := request.(emptyReq); !ok {
			return statusResponse{}, errors.Join(pkgerrors.ErrValidation, pkgerrors.ErrInvalidData)
		}

		status, err := svc.RestartServer(ctx)
		if err != nil {
			return statusResponse{}, err
		}

		return statusResponse{
			Status: status,
		}, nil
	}
}

func listModelsEndpoint(svc governor.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		if _, ok := request.(emptyReq); !ok {
			return listModelsResponse{}, errors.Join(pkgerrors.ErrValidation, pkgerrors.ErrInvalidData)
		}

		models, err := svc.ListModels(ctx)
		if err != nil {
			return listModelsResponse{}, err
		}

		return listModelsResponse{
			Models: models,
			Total:  len(models),
		}, nil
	}
}

func scanModelsEndpoint(svc governor.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		if _, ok := request.(emptyReq); !ok {
			return listModelsResponse{}, errors.Join(pkgerrors.ErrValidation, pkgerrors.ErrInvalidData)
		}

		models, err := svc.ScanModels(ctx)
		if err != nil {
			return listModelsResponse{}, err
		}

		return listModelsResponse{
			Models: models,
			Total:  len(models),
		}, nil
	}
}

func selectModelEndpoint(svc governor.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(modelReq)
		if !ok {
			return modelResponse{}, errors.Join(pkgerrors.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return modelResponse{}, errors.Join(pkgerrors.ErrValidation, err)
		}

		record, err := svc.SelectModel(ctx, req.name)
		if err != nil {
			return modelResponse{}, err
		}

		return modelResponse{
			ModelRecord: record,
		}, nil
	}
}

func benchmarkModelEndpoint(svc governor.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(benchmarkReq)
		if !ok {
			return benchmarkResponse{}, errors.Join(pkgerrors.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return benchmarkResponse{}, errors.Join(pkgerrors.ErrValidation, err)
		}

		result, err := svc.BenchmarkModel(ctx, req.name, req.MaxTokens)
		if err != nil {
			return benchmarkResponse{}, err
		}

		return benchmarkResponse{
			Result: result,
		}, nil
	}
}

func hostLogEndpoint(svc governor.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		if _, ok := request.(emptyReq); !ok {
			return logResponse{}, errors.Join(pkgerrors.ErrValidation, pkgerrors.ErrInvalidData)
		}

		tail, err := svc.HostLog(ctx)
		if err != nil {
			return logResponse{}, err
		}

		return logResponse{
			Log: tail,
		}, nil
	}
}

func serverLogEndpoint(svc governor.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		if _, ok := request.(emptyReq); !ok {
			return logResponse{}, errors.Join(pkgerrors.ErrValidation, pkgerrors.ErrInvalidData)
		}

		tail, err := svc.ServerLog(ctx)
		if err != nil {
			return logResponse{}, err
		}

		return logResponse{
			Log: tail,
		}, nil
	}
}

func clearHostLogEndpoint(svc governor.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		if _, ok := request.(emptyReq); !ok {
			return clearedResponse{}, errors.Join(pkgerrors.ErrValidation, pkgerrors.ErrInvalidData)
		}

		if err := svc.ClearHostLog(ctx); err != nil {
			return clearedResponse{}, err
		}

		return clearedResponse{}, nil
	}
}

func clearServerLogEndpoint(svc governor.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		if _, ok := request.(emptyReq); !ok {
			return clearedResponse{}, errors.Join(pkgerrors.ErrValidation, pkgerrors.ErrInvalidData)
		}

		if err := svc.ClearServerLog(ctx); err != nil {
			return clearedResponse{}, err
		}

		return clearedResponse{}, nil
	}
}
