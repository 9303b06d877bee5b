package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/syncany/syncany-go/internal/daemon/folder"
	"github.com/syncany/syncany-go/internal/daemonmsg"
	"github.com/syncany/syncany-go/internal/versionstore"
)

// Broadcaster pushes a message to every connected front-end.
type Broadcaster interface {
	Broadcast(msg *daemonmsg.Message) int
}

type FolderHandler struct {
	folders *folder.Service
	events  Broadcaster
}

func NewFolderHandler(folders *folder.Service, events Broadcaster) *FolderHandler {
	return &FolderHandler{folders: folders, events: events}
}

// Watches godoc
//
//	@Summary	List watched roots
//	@Tags		folder
//	@Produce	json
//	@Success	200	{object}	WatchesResponse
//	@Router		/v1/watches [get]
func (h *FolderHandler) Watches(c *gin.Context) {
	c.PureJSON(http.StatusOK, &WatchesResponse{Watches: h.folders.Watches()})
}

func (h *FolderHandler) Headers(c *gin.Context) {
	var req HeadersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, http.StatusBadRequest, ErrCodeBadRequest, err)
		return
	}

	headers, err := h.folders.Headers(c.Request.Context(), req.Root)
	if err != nil {
		abortWithFolderError(c, err)
		return
	}

	c.PureJSON(http.StatusOK, &HeadersResponse{Root: req.Root, Headers: headers})
}

// Log godoc
//
//	@Summary	Get a window of the version log of a root, newest first
//	@Tags		folder
//	@Produce	json
//	@Param		root		query		string	true	"Watched root"
//	@Param		start		query		int		false	"Versions to skip"				default(0)
//	@Param		maxVersions	query		int		false	"Versions in the window"		default(15)
//	@Param		maxFiles	query		int		false	"Files listed per version"		default(10)
//	@Success	200			{object}	LogResponse
//	@Failure	400			{object}	ControlPlaneError
//	@Failure	404			{object}	ControlPlaneError
//	@Router		/v1/folder/log [get]
func (h *FolderHandler) Log(c *gin.Context) {
	var req LogRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, http.StatusBadRequest, ErrCodeBadRequest, err)
		return
	}

	versions, err := h.folders.Log(c.Request.Context(), req.Root, daemonmsg.LogOptions{
		StartDatabaseVersionIndex: req.Start,
		MaxDatabaseVersionCount:   req.MaxVersions,
		MaxFileHistoryCount:       req.MaxFiles,
	})
	if err != nil {
		abortWithFolderError(c, err)
		return
	}

	c.PureJSON(http.StatusOK, &LogResponse{
		Root:     req.Root,
		Start:    req.Start,
		Versions: versions,
		HasMore:  len(versions) == req.MaxVersions,
		Next:     req.Start + len(versions),
	})
}

// AppendVersion records a database version written by the sync engine.
func (h *FolderHandler) AppendVersion(c *gin.Context) {
	var req AppendVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, http.StatusBadRequest, ErrCodeBadRequest, err)
		return
	}

	if err := h.folders.Append(c.Request.Context(), req.Root, req.Version); err != nil {
		abortWithFolderError(c, err)
		return
	}

	c.PureJSON(http.StatusCreated, &ControlPlaneResponse{Code: "OK"})
}

// StatusText pushes a status line to the connected front-ends.
func (h *FolderHandler) StatusText(c *gin.Context) {
	var req StatusTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, http.StatusBadRequest, ErrCodeBadRequest, err)
		return
	}

	n := 0
	if h.events != nil {
		n = h.events.Broadcast(daemonmsg.NewStatusText(req.Root, req.Text))
	}
	c.PureJSON(http.StatusOK, &StatusTextResponse{Code: "OK", Recipients: n})
}

func abortWithFolderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, folder.ErrUnknownRoot):
		AbortWithError(c, http.StatusNotFound, ErrCodeUnknownRoot, err)
	case errors.Is(err, folder.ErrInvalidOptions),
		errors.Is(err, versionstore.ErrZeroDate),
		errors.Is(err, versionstore.ErrEmptyRoot):
		AbortWithError(c, http.StatusBadRequest, ErrCodeBadRequest, err)
	default:
		AbortWithError(c, http.StatusInternalServerError, ErrCodeUnknownError, err)
	}
}
