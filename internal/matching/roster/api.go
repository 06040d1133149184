package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"osprey/internal/config"
	"osprey/internal/constants"
	"osprey/internal/logger"
	pkgerrors "osprey/pkg/errors"
	"osprey/pkg/metrics"
)

// APIProvider fetches the roster from the CRM connector service. The
// configured URL may carry a {user_id} placeholder; without one the user
// id is appended as a query parameter.
type APIProvider struct {
	client    *http.Client
	url       string
	authToken string
	logger    logger.Logger
}

func NewAPIProvider(cfg config.RosterAPIConfig, log logger.Logger) *APIProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = constants.RosterAPITimeout
	}

	return &APIProvider{
		client:    &http.Client{Timeout: timeout},
		url:       cfg.URL,
		authToken: cfg.AuthToken,
		logger:    log,
	}
}

func (p *APIProvider) Name() string {
	return constants.ProviderNameAPI
}

func (p *APIProvider) Fetch(ctx context.Context, userID string) ([]Contact, error) {
	start := time.Now()

	contacts, err := p.fetch(ctx, userID)
	if err != nil {
		metrics.IncRosterProviderRequest(p.Name(), "error")
		return nil, err
	}

	metrics.IncRosterProviderRequest(p.Name(), "success")
	metrics.ObserveRosterProviderDuration(p.Name(), time.Since(start))

	p.logger.Debugw("Roster fetched from API",
		"user_id", userID,
		"contact_count", len(contacts),
	)
	return contacts, nil
}

func (p *APIProvider) fetch(ctx context.Context, userID string) ([]Contact, error) {
	endpoint := p.requestURL(userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	req.Header.Set("Accept", "application/json")
	if p.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.authToken)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrServiceUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
		return nil, pkgerrors.ErrServiceUnavailable.WithDetail(
			"message", fmt.Sprintf("roster API returned status %d", resp.StatusCode),
		)
	}

	var contacts []Contact
	if err := json.NewDecoder(resp.Body).Decode(&contacts); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	return contacts, nil
}

func (p *APIProvider) requestURL(userID string) string {
	if strings.Contains(p.url, "{user_id}") {
		return strings.ReplaceAll(p.url, "{user_id}", url.PathEscape(userID))
	}

	sep := "?"
	if strings.Contains(p.url, "?") {
		sep = "&"
	}
	return p.url + sep + "user_id=" + url.QueryEscape(userID)
}
