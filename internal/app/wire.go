package app

import (
	"net/http"

	"parley/internal/domain"
	"parley/internal/relay"
	groupsvc "parley/internal/services/group"
	identitysvc "parley/internal/services/identity"
	messagesvc "parley/internal/services/message"
	prekeysvc "parley/internal/services/prekey"
	sessionsvc "parley/internal/services/session"
	"parley/internal/store"
)

// Wire bundles all stores, services, and clients for the CLI.
type Wire struct {
	IDs      domain.IdentityService
	Prekeys  domain.PreKeyService
	Sessions domain.SessionService
	Messages domain.MessageService
	Groups   domain.GroupService
	Relay    domain.RelayClient
	HTTP     *http.Client
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config) (*Wire, error) {
	// File-based stores
	fileStore := store.NewFileStore(cfg.Home)
	sessionStore := store.NewSessionFileStore(cfg.Home)
	groupStore := store.NewGroupFileStore(cfg.Home)

	// Ensure an HTTP client is available for outbound calls
	httpClient := cfg.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	// Relay client (uses provided HTTP client)
	rc := relay.New(cfg.RelayURL, httpClient, nil)

	// High-level services. Messaging and groups reference each other, so the
	// group handler is attached after construction.
	idSvc := identitysvc.New(fileStore)
	prekeySvc := prekeysvc.New(fileStore, fileStore, rc)
	sessionSvc := sessionsvc.New(fileStore, sessionStore, rc)
	messageSvc := messagesvc.New(fileStore, fileStore, sessionStore, sessionSvc, rc)
	groupSvc := groupsvc.New(groupStore, rc, messageSvc)
	messageSvc.SetGroupHandler(groupSvc)

	return &Wire{
		IDs:      idSvc,
		Prekeys:  prekeySvc,
		Sessions: sessionSvc,
		Messages: messageSvc,
		Groups:   groupSvc,
		Relay:    rc,
		HTTP:     httpClient,
	}, nil
}
