// Package api exposes the training data core over HTTP: artifact CRUD,
// multi-file import, export download, importer logs, audit trail and bot
// settings. Every response uses the {success, error_code, message, data}
// envelope.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/digiteinfotech/kairon/internal/dataset"
	"github.com/digiteinfotech/kairon/internal/exporter"
	"github.com/digiteinfotech/kairon/internal/importer"
	"github.com/digiteinfotech/kairon/internal/store"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// actorHeader names the request header carrying the acting user for the
// audit trail. Authentication itself lives in the outer platform.
const actorHeader = "X-User"

// Opts holds API server configuration.
type Opts struct {
	Addr string
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr overrides the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// Server routes HTTP requests to the processor, importer and exporter.
type Server struct {
	processor *dataset.Processor
	importer  *importer.Importer
	exporter  *exporter.Exporter
	addr      string
}

// NewServer creates a Server over the given processor.
func NewServer(p *dataset.Processor, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		processor: p,
		importer:  importer.New(p),
		exporter:  exporter.New(p),
		addr:      cfg.Addr,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /bots/{bot}", s.createBotHandler)
	mux.HandleFunc("DELETE /bots/{bot}", s.deleteBotHandler)
	mux.HandleFunc("GET /bots/{bot}/settings", s.getSettingsHandler)
	mux.HandleFunc("PUT /bots/{bot}/settings", s.updateSettingsHandler)

	mux.HandleFunc("POST /bots/{bot}/intents", s.addIntentHandler)
	mux.HandleFunc("GET /bots/{bot}/intents", s.listIntentsHandler)
	mux.HandleFunc("DELETE /bots/{bot}/intents/{name}", s.deleteIntentHandler)
	mux.HandleFunc("POST /bots/{bot}/training_examples", s.addTrainingExampleHandler)
	mux.HandleFunc("GET /bots/{bot}/training_examples", s.listTrainingExamplesHandler)
	mux.HandleFunc("DELETE /bots/{bot}/training_examples", s.deleteTrainingExampleHandler)
	mux.HandleFunc("POST /bots/{bot}/entities", s.addEntityHandler)
	mux.HandleFunc("GET /bots/{bot}/entities", s.listEntitiesHandler)
	mux.HandleFunc("DELETE /bots/{bot}/entities/{name}", s.deleteEntityHandler)

	mux.HandleFunc("POST /bots/{bot}/slots", s.addSlotHandler)
	mux.HandleFunc("PUT /bots/{bot}/slots", s.updateSlotHandler)
	mux.HandleFunc("GET /bots/{bot}/slots", s.listSlotsHandler)
	mux.HandleFunc("DELETE /bots/{bot}/slots/{name}", s.deleteSlotHandler)
	mux.HandleFunc("POST /bots/{bot}/slot_mappings", s.addSlotMappingHandler)
	mux.HandleFunc("PUT /bots/{bot}/slot_mappings", s.updateSlotMappingHandler)
	mux.HandleFunc("GET /bots/{bot}/slot_mappings", s.listSlotMappingsHandler)
	mux.HandleFunc("DELETE /bots/{bot}/slot_mappings/{slot}", s.deleteSlotMappingHandler)

	mux.HandleFunc("POST /bots/{bot}/responses", s.addResponseHandler)
	mux.HandleFunc("PUT /bots/{bot}/responses", s.updateResponseHandler)
	mux.HandleFunc("GET /bots/{bot}/responses", s.listResponsesHandler)
	mux.HandleFunc("DELETE /bots/{bot}/responses/{name}", s.deleteResponseHandler)

	mux.HandleFunc("POST /bots/{bot}/stories", s.addStoryHandler)
	mux.HandleFunc("PUT /bots/{bot}/stories", s.updateStoryHandler)
	mux.HandleFunc("GET /bots/{bot}/stories", s.listStoriesHandler)
	mux.HandleFunc("DELETE /bots/{bot}/stories/{name}", s.deleteStoryHandler)
	mux.HandleFunc("POST /bots/{bot}/rules", s.addRuleHandler)
	mux.HandleFunc("PUT /bots/{bot}/rules", s.updateRuleHandler)
	mux.HandleFunc("GET /bots/{bot}/rules", s.listRulesHandler)
	mux.HandleFunc("DELETE /bots/{bot}/rules/{name}", s.deleteRuleHandler)
	mux.HandleFunc("POST /bots/{bot}/multiflow_stories", s.addMultiflowHandler)
	mux.HandleFunc("PUT /bots/{bot}/multiflow_stories", s.updateMultiflowHandler)
	mux.HandleFunc("GET /bots/{bot}/multiflow_stories", s.listMultiflowsHandler)
	mux.HandleFunc("DELETE /bots/{bot}/multiflow_stories/{name}", s.deleteMultiflowHandler)

	mux.HandleFunc("POST /bots/{bot}/forms", s.addFormHandler)
	mux.HandleFunc("PUT /bots/{bot}/forms", s.updateFormHandler)
	mux.HandleFunc("GET /bots/{bot}/forms", s.listFormsHandler)
	mux.HandleFunc("DELETE /bots/{bot}/forms/{name}", s.deleteFormHandler)

	mux.HandleFunc("POST /bots/{bot}/actions", s.addActionHandler)
	mux.HandleFunc("PUT /bots/{bot}/actions", s.updateActionHandler)
	mux.HandleFunc("GET /bots/{bot}/actions", s.listActionsHandler)
	mux.HandleFunc("DELETE /bots/{bot}/actions/{name}", s.deleteActionHandler)

	mux.HandleFunc("POST /bots/{bot}/cognition/schemas", s.addCognitionSchemaHandler)
	mux.HandleFunc("GET /bots/{bot}/cognition/schemas", s.listCognitionSchemasHandler)
	mux.HandleFunc("DELETE /bots/{bot}/cognition/schemas/{collection}", s.deleteCognitionSchemaHandler)
	mux.HandleFunc("POST /bots/{bot}/cognition/data", s.addCognitionDataHandler)
	mux.HandleFunc("GET /bots/{bot}/cognition/data", s.listCognitionDataHandler)
	mux.HandleFunc("PUT /bots/{bot}/cognition/data/{row}", s.updateCognitionDataHandler)
	mux.HandleFunc("DELETE /bots/{bot}/cognition/data/{row}", s.deleteCognitionDataHandler)

	mux.HandleFunc("GET /bots/{bot}/config", s.getConfigHandler)
	mux.HandleFunc("PUT /bots/{bot}/config", s.updateConfigHandler)
	mux.HandleFunc("GET /bots/{bot}/chat_client_config", s.getChatClientConfigHandler)
	mux.HandleFunc("PUT /bots/{bot}/chat_client_config", s.updateChatClientConfigHandler)

	mux.HandleFunc("POST /bots/{bot}/import", s.importHandler)
	mux.HandleFunc("GET /bots/{bot}/import/logs", s.listImportLogsHandler)
	mux.HandleFunc("GET /bots/{bot}/import/logs/{reference}", s.getImportLogHandler)
	mux.HandleFunc("GET /bots/{bot}/export", s.exportHandler)
	mux.HandleFunc("GET /bots/{bot}/audit", s.listAuditHandler)

	return mux
}

// ListenAndServe runs the HTTP server until it fails.
func (s *Server) ListenAndServe() error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}
	slog.Info("Server.ListenAndServe: API listening", "addr", s.addr)
	return server.ListenAndServe()
}

// Run wires the store and serves the API. Used by the command entrypoint.
func Run(storeOpts []store.Option, apiOpts []Option) error {
	var (
		st  store.Store
		err error
	)
	cfg := store.Opts{}
	for _, opt := range storeOpts {
		opt(&cfg)
	}
	switch {
	case cfg.DSN == "":
		slog.Info("api.Run: no DSN configured, using in-memory store")
		st = store.NewInMemoryStore()
	case store.DetectDSNType(cfg.DSN) == "postgres":
		st, err = store.NewPostgresStore(storeOpts...)
	default:
		st, err = store.NewSQLiteStore(storeOpts...)
	}
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer st.Close()

	server := NewServer(dataset.NewProcessor(st), apiOpts...)
	return server.ListenAndServe()
}

// actor resolves the acting user of a request for audit attribution.
func actor(r *http.Request) string {
	if user := r.Header.Get(actorHeader); user != "" {
		return user
	}
	return "system"
}
