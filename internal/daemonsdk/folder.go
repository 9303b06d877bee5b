package daemonsdk

import (
	"context"
	"strconv"

	"github.com/imroc/req/v3"
)

const (
	v1Watches        = "/v1/watches"
	v1FolderHeaders  = "/v1/folder/headers"
	v1FolderLog      = "/v1/folder/log"
	v1FolderVersions = "/v1/folder/versions"
	v1FolderStatus   = "/v1/folder/status"
)

type FolderAPI struct {
	client *req.Client
}

func newFolderAPI(client *req.Client) *FolderAPI {
	return &FolderAPI{
		client: client,
	}
}

func (f *FolderAPI) Watches(ctx context.Context) (resp *WatchesResponse, err error) {
	res, err := f.client.R().
		SetContext(ctx).
		SetSuccessResult(&resp).
		Get(v1Watches)

	if err := handleAPIError(res, err, "watches"); err != nil {
		return nil, err
	}

	return resp, nil
}

func (f *FolderAPI) Headers(ctx context.Context, root string) (resp *HeadersResponse, err error) {
	res, err := f.client.R().
		SetContext(ctx).
		SetQueryParam("root", root).
		SetSuccessResult(&resp).
		Get(v1FolderHeaders)

	if err := handleAPIError(res, err, "folder headers"); err != nil {
		return nil, err
	}

	return resp, nil
}

func (f *FolderAPI) Log(ctx context.Context, params *LogParams) (resp *LogResponse, err error) {
	r := f.client.R().
		SetContext(ctx).
		SetQueryParam("root", params.Root).
		SetQueryParam("start", strconv.Itoa(params.Start)).
		SetSuccessResult(&resp)

	if params.MaxVersions > 0 {
		r.SetQueryParam("maxVersions", strconv.Itoa(params.MaxVersions))
	}
	if params.MaxFiles > 0 {
		r.SetQueryParam("maxFiles", strconv.Itoa(params.MaxFiles))
	}

	res, err := r.Get(v1FolderLog)
	if err := handleAPIError(res, err, "folder log"); err != nil {
		return nil, err
	}

	return resp, nil
}

// AppendVersion records a new database version for a root.
func (f *FolderAPI) AppendVersion(ctx context.Context, body *AppendVersionRequest) error {
	res, err := f.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(v1FolderVersions)

	return handleAPIError(res, err, "append version")
}

// PostStatusText pushes a status line to every connected front-end.
func (f *FolderAPI) PostStatusText(ctx context.Context, body *StatusTextRequest) (resp *StatusTextResponse, err error) {
	res, err := f.client.R().
		SetContext(ctx).
		SetBody(body).
		SetSuccessResult(&resp).
		Post(v1FolderStatus)

	if err := handleAPIError(res, err, "status text"); err != nil {
		return nil, err
	}

	return resp, nil
}
