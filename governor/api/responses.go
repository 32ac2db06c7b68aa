package api

import (
	"net/http"

	"github.com/daverage/TinyLLM/benchmark"
	"github.com/daverage/TinyLLM/catalog"
	"github.com/daverage/TinyLLM/governor"
	"github.com/daverage/TinyLLM/pkg/api"
)

var (
	_ api.Response = (*statusResponse)(nil)
	_ api.Response = (*configResponse)(nil)
	_ api.Response = (*planResponse)(nil)
	_ api.Response = (*listModelsResponse)(nil)
	_ api.Response = (*modelResponse)(nil)
	_ api.Response = (*benchmarkResponse)(nil)
	_ api.Response = (*logResponse)(nil)
	_ api.Response = (*clearedResponse)(nil)
)

type statusResponse struct {
	governor.Status
}

func (s statusResponse) Code() int {
	return http.StatusOK
}

func (s statusResponse) Headers() map[string]string {
	return map[string]string{}
}

func (s statusResponse) Empty() bool {
	return false
}

type configResponse struct {
	governor.Config
}

func (c configResponse) Code() int {
	return http.StatusOK
}

func (c configResponse) Headers() map[string]string {
	return map[string]string{}
}

func (c configResponse) Empty() bool {
	return false
}

type planResponse struct {
	governor.Plan
}

func (p planResponse) Code() int {
	return http.StatusOK
}

func (p planResponse) Headers() map[string]string {
	return map[string]string{}
}

func (p planResponse) Empty() bool {
	return false
}

type listModelsResponse struct {
	Models []catalog.ModelRecord `json:"models"`
	Total  int                   `json:"total"`
}

func (l listModelsResponse) Code() int {
	return http.StatusOK
}

func (l listModelsResponse) Headers() map[string]string {
	return map[string]string{}
}

func (l listModelsResponse) Empty() bool {
	return false
}

type modelResponse struct {
	catalog.ModelRecord
}

func (m modelResponse) Code() int {
	return http.StatusOK
}

func (m modelResponse) Headers() map[string]string {
	return map[string]string{}
}

func (m modelResponse) Empty() bool {
	return false
}

type benchmarkResponse struct {
	benchmark.Result
}

func (b benchmarkResponse) Code() int {
	return http.StatusOK
}

func (b benchmarkResponse) Headers() map[string]string {
	return map[string]string{}
}

func (b benchmarkResponse) Empty() bool {
	return false
}

type logResponse struct {
	Log string `json:"log"`
}

func (l logResponse) Code() int {
	return http.StatusOK
}

func (l logResponse) Headers() map[string]string {
	return map[string]string{}
}

func (l logResponse) Empty() bool {
	return false
}

type clearedResponse struct{}

func (c clearedResponse) Code() int {
	return http.StatusNoContent
}

func (c clearedResponse) Headers() map[string]string {
	return map[string]string{}
}

func (c clearedResponse) Empty() bool {
	return true
}
