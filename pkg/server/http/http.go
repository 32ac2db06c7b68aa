package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/daverage/TinyLLM/pkg/server"
)

const (
	stopWaitTime = 5 * time.Second

	httpProtocol = "http"
)

type httpServer struct {
	server.BaseServer
	server *http.Server
}

var _ server.Server = (*httpServer)(nil)

func NewServer(ctx context.Context, cancel context.CancelFunc, name string, config server.Config, handler http.Handler, logger *slog.Logger) server.Server {
	listenFullAddress := fmt.Sprintf("%s:%s", config.Host, config.Port)
	hserver := &http.Server{Addr: listenFullAddress, Handler: handler}

	return &httpServer{
		BaseServer: server.BaseServer{
			Ctx:      ctx,
			Cancel:   cancel,
			Name:     name,
			Address:  listenFullAddress,
			Config:   config,
			Logger:   logger,
			Protocol: httpProtocol,
		},
		server: hserver,
	}
}

func (s *httpServer) Start() error {
	errCh := make(chan error)
	s.Logger.Info(fmt.Sprintf("%s service %s server listening at %s without TLS", s.Name, s.Protocol, s.Address))
	go func() {
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case <-s.Ctx.Done():
		return s.Stop()
	case err := <-errCh:
		return err
	}
}

func (s *httpServer) Stop() error {
	defer s.Cancel()
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), stopWaitTime)
	defer cancelShutdown()
	if err := s.server.Shutdown(ctxShutdown); err != nil {
		s.Logger.Error(fmt.Sprintf("%s service %s server failed to shutdown: %v", s.Name, s.Protocol, err))

		return s.server.Close()
	}
	s.Logger.Info(fmt.Sprintf("%s service %s server shutdown at %s", s.Name, s.Protocol, s.Address))

	return nil
}
