// Copyright 2025 EURECOM
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Contributors:
//   Giulio CAROTA
//   Thomas DU
//   Adlen KSENTINI

package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"

	"github.com/gorilla/mux"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"gitlab.eurecom.fr/open-exposure/coresim/traffic-generator/internal/flow"
)

const apiPrefix = "/traffic-generator/v1"

func (app *TrafficGeneratorApp) handleConfigure(w http.ResponseWriter, r *http.Request) {
	if r.Body == nil || r.ContentLength == 0 {
		http.Error(w, "Missing request body", http.StatusBadRequest)
		return
	}

	specs, err := flow.DecodeFlows(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := app.Configure(specs); err != nil {
		http.Error(w, err.Error(), configureErrorStatus(err))
		return
	}

	app.writeStatus(w)
}

func configureErrorStatus(err error) int {
	var validationErr *flow.ValidationError
	var bindErr *flow.BindError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &bindErr), errors.Is(err, ErrNoFlows):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (app *TrafficGeneratorApp) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := app.Start(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	app.writeStatus(w)
}

func (app *TrafficGeneratorApp) handleStatus(w http.ResponseWriter, r *http.Request) {
	app.writeStatus(w)
}

func (app *TrafficGeneratorApp) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := app.Stop(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	summary := app.Summary()
	if summary == nil {
		app.writeStatus(w)
		return
	}
	if err := json.NewEncoder(w).Encode(summary); err != nil {
		http.Error(w, "could not encode response", http.StatusInternalServerError)
	}
}

func (app *TrafficGeneratorApp) handleFlows(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(app.Flows()); err != nil {
		http.Error(w, "could not encode response", http.StatusInternalServerError)
	}
}

func (app *TrafficGeneratorApp) writeStatus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(app.Status()); err != nil {
		http.Error(w, "could not encode response", http.StatusInternalServerError)
	}
}

func (app *TrafficGeneratorApp) router() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc(apiPrefix+"/configure", app.handleConfigure).Methods(http.MethodPost)
	router.HandleFunc(apiPrefix+"/start", app.handleStart).Methods(http.MethodPost)
	router.HandleFunc(apiPrefix+"/stop", app.handleStop).Methods(http.MethodPost)
	router.HandleFunc(apiPrefix+"/status", app.handleStatus).Methods(http.MethodGet)
	router.HandleFunc(apiPrefix+"/flows", app.handleFlows).Methods(http.MethodGet)

	if app.config.UseH2c {
		return h2c.NewHandler(router, &http2.Server{})
	}
	return router
}

func (app *TrafficGeneratorApp) startHttpServer() error {
	addr := fmt.Sprintf(":%d", app.config.OamPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("could not start control api: %w", err)
	}

	app.server = &http.Server{Addr: addr, Handler: app.router()}

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()

		log.Printf("serving control api on %s", addr)
		// always returns error. ErrServerClosed on graceful close
		if err := app.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("control api stopped: %v", err)
		}
	}()
	return nil
}

func (app *TrafficGeneratorApp) stopHttpServer() {
	if app.server != nil {
		if err := app.server.Close(); err != nil {
			log.Printf("could not stop control api: %v", err)
		}
	}
}
