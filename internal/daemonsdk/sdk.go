// Package daemonsdk is the front-end side of the daemon control plane: a REST
// client for folder queries and an events socket for correlated log requests.
package daemonsdk

import (
	"context"
	"strings"
	"time"

	"github.com/imroc/req/v3"
	"github.com/syncany/syncany-go/internal/utils"
	"github.com/syncany/syncany-go/internal/version"
)

const (
	v1Status = "/v1/status"
)

// DaemonSDK is the main client for talking to a local daemon.
type DaemonSDK struct {
	client  *req.Client
	baseURL string
	Folder  *FolderAPI
	Events  *EventsAPI
}

// New creates a client for the daemon at baseURL. An empty token skips auth.
func New(baseURL string, token string) (*DaemonSDK, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		return nil, ErrNoDaemonURL
	}

	client := req.C().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetCommonRetryCount(3).
		SetCommonRetryFixedInterval(1*time.Second).
		SetUserAgent(UserAgent).
		SetCommonHeader(HeaderVersion, version.Version).
		SetCommonHeader(HeaderDeviceId, utils.HWID).
		SetCommonErrorResult(&APIError{}).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal)

	if token != "" {
		client.SetCommonHeader(HeaderAuthorization, "Bearer "+token)
	}

	return &DaemonSDK{
		client:  client,
		baseURL: baseURL,
		Folder:  newFolderAPI(client),
		Events:  newEventsAPI(baseURL, client.Headers.Clone()),
	}, nil
}

// Status fetches the daemon build and runtime status.
func (s *DaemonSDK) Status(ctx context.Context) (resp *StatusResponse, err error) {
	res, err := s.client.R().
		SetContext(ctx).
		SetSuccessResult(&resp).
		Get(v1Status)

	if err := handleAPIError(res, err, "status"); err != nil {
		return nil, err
	}

	return resp, nil
}

func (s *DaemonSDK) BaseURL() string {
	return s.baseURL
}

// Close terminates the events socket and stops redialling it.
func (s *DaemonSDK) Close() {
	s.Events.Close()
}
