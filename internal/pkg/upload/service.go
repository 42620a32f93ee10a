package upload

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	"github.com/gorilla/websocket"
	"github.com/minio/minio-go/v7"
	"github.com/pkg/errors"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/edugrade/segma/internal/pkg/api"
	"github.com/edugrade/segma/internal/pkg/extractor"
	"github.com/edugrade/segma/internal/pkg/persistence"
	"github.com/edugrade/segma/internal/pkg/segments"
	"github.com/edugrade/segma/internal/pkg/statushub"
	"github.com/edugrade/segma/internal/pkg/utils"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// FileSaver provides save, load and delete blob functionality
type FileSaver interface {
	SaveFile(ctx context.Context, name string, r io.Reader, fileSize int64, contentType string) error
	LoadFile(ctx context.Context, name string) (io.ReadSeekCloser, error)
	Delete(ctx context.Context, name string) error
}

// DB provides upload rows persistence
type DB interface {
	InsertUpload(ctx context.Context, item *persistence.AudioUpload) error
	LoadUploadByID(ctx context.Context, id int64) (*persistence.AudioUpload, error)
	ListUploads(ctx context.Context, ownerID int64) ([]*persistence.AudioUpload, error)
	DeleteUpload(ctx context.Context, id int64) error
	Live(ctx context.Context) error
}

// Segmenter runs the segmentation pipeline for one stored file
type Segmenter interface {
	Segment(ctx context.Context, key string) ([]segments.Segment, error)
}

// WSHandler provides websocket connection handling
type WSHandler interface {
	HandleConnection(conn statushub.WsConn) error
}

// Data keeps data required for service work
type Data struct {
	Port      int
	Saver     FileSaver
	DB        DB
	Segmenter Segmenter
	WSHandler WSHandler
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Msgf("Starting HTTP SEGMA service at %d", data.Port)
	if err := validate(data); err != nil {
		return err
	}

	portStr := strconv.Itoa(data.Port)

	e := initRoutes(data)

	e.Server.Addr = ":" + portStr
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 180 * time.Second
	e.Server.WriteTimeout = 30 * time.Minute

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	return gracehttp.Serve(e.Server)
}

func validate(data *Data) error {
	if data.Saver == nil {
		return errors.New("no file saver")
	}
	if data.DB == nil {
		return fmt.Errorf("no DB")
	}
	if data.Segmenter == nil {
		return fmt.Errorf("no segmenter")
	}
	if data.WSHandler == nil {
		return fmt.Errorf("no WSHandler")
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("segma", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.POST("/upload", upload(data))
	e.POST("/segment", segment(data))
	e.GET("/files", list(data))
	e.DELETE("/files/:id", deleteFile(data))
	e.GET("/audio/*", downloadAudio(data))
	e.HEAD("/audio/*", downloadAudio(data))
	e.GET("/status/ws", subscribeHandler(data))
	e.GET("/live", live(data))

	goapp.Log.Info().Msg("Routes:")
	for _, r := range e.Routes() {
		goapp.Log.Info().Msgf("  %s %s", r.Method, r.Path)
	}
	return e
}

func live(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		if err := data.DB.Live(c.Request().Context()); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusServiceUnavailable)
		}
		return c.JSONBlob(http.StatusOK, []byte(`{"service":"OK"}`))
	}
}

func upload(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("upload method")()
		ctx := c.Request().Context()

		form, err := c.MultipartForm()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "no multipart form data")
		}
		defer cleanFiles(form)

		file, handler, err := takeFile(form, api.PrmFile)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "no form file parameter 'file'")
		}
		defer file.Close()

		ext := strings.ToLower(filepath.Ext(handler.Filename))
		if !utils.SupportAudioExt(ext) {
			return echo.NewHTTPError(http.StatusBadRequest, "wrong file extension: "+ext)
		}
		owner := extractOwnerID(c.Request().Header)
		key, err := utils.MakeStorageKey(owner, handler.Filename)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}

		// blob first - a failed write must leave no row behind
		if err := data.Saver.SaveFile(ctx, key, file, handler.Size, utils.AudioContentType(handler.Filename)); err != nil {
			goapp.Log.Error().Err(utils.NewErrStorageWrite(err)).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		rec := persistence.AudioUpload{OwnerID: owner, Filename: filepath.Base(handler.Filename),
			StorageKey: key, Created: time.Now()}
		if err := data.DB.InsertUpload(ctx, &rec); err != nil {
			goapp.Log.Error().Err(err).Send()
			if errD := data.Saver.Delete(ctx, key); errD != nil {
				goapp.Log.Error().Err(errD).Msg("can't clean up blob")
			}
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		goapp.Log.Info().Str("key", goapp.Sanitize(key)).Int64("id", rec.ID).Msg("uploaded")

		return c.JSON(http.StatusOK, api.UploadResult{Key: key})
	}
}

func segment(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("segment method")()
		ctx := c.Request().Context()

		var req api.SegmentRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "can't bind request")
		}
		if req.Key == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "no key")
		}
		segs, err := data.Segmenter.Segment(ctx, req.Key)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return segmentErrCode(err)
		}
		return c.JSON(http.StatusOK, api.SegmentResult{Segments: segs})
	}
}

// segmentErrCode maps pipeline failure kinds to HTTP responses
func segmentErrCode(err error) error {
	if errors.Is(err, extractor.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "no upload by key")
	}
	var errTimeout *utils.ErrProcessingTimeout
	if errors.As(err, &errTimeout) {
		return echo.NewHTTPError(http.StatusGatewayTimeout, errTimeout.Error())
	}
	var errInit *utils.ErrUploadInit
	var errTransfer *utils.ErrUploadTransfer
	var errGen *utils.ErrGeneration
	if errors.As(err, &errInit) || errors.As(err, &errTransfer) || errors.As(err, &errGen) {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	var errParse *utils.ErrParse
	var errValidation *utils.ErrValidation
	if errors.As(err, &errParse) || errors.As(err, &errValidation) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError)
}

func list(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("list method")()

		owner := extractOwnerID(c.Request().Header)
		items, err := data.DB.ListUploads(c.Request().Context(), owner)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		res := make([]api.FileRecord, 0, len(items))
		for _, item := range items {
			res = append(res, mapFileRecord(item))
		}
		return c.JSON(http.StatusOK, res)
	}
}

func mapFileRecord(item *persistence.AudioUpload) api.FileRecord {
	res := api.FileRecord{ID: item.ID, Filename: item.Filename, Key: item.StorageKey,
		Created: item.Created.Unix()}
	if item.Segments.Valid {
		segs, err := segments.Unmarshal(item.Segments.String)
		if err != nil {
			goapp.Log.Error().Err(err).Int64("id", item.ID).Msg("can't unmarshal stored segments")
		} else {
			res.Segments = segs
		}
	}
	return res
}

func deleteFile(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("delete method")()
		ctx := c.Request().Context()

		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "wrong ID")
		}
		rec, err := data.DB.LoadUploadByID(ctx, id)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		if rec == nil || rec.OwnerID != extractOwnerID(c.Request().Header) {
			return echo.NewHTTPError(http.StatusNotFound, "no upload by ID")
		}
		if err := data.DB.DeleteUpload(ctx, id); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		if err := data.Saver.Delete(ctx, rec.StorageKey); err != nil {
			goapp.Log.Error().Err(err).Msg("can't delete blob")
		}
		return c.NoContent(http.StatusOK)
	}
}

func downloadAudio(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("download method")()

		key := c.Param("*")
		if key == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "no key")
		}
		return serveFile(c, data, key)
	}
}

func serveFile(c echo.Context, data *Data, name string) error {
	goapp.Log.Info().Str("file", goapp.Sanitize(name)).Msg("loading")
	file, err := data.Saver.LoadFile(c.Request().Context(), name)
	if err != nil {
		if isNotFound(err) {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		goapp.Log.Error().Err(err).Send()
		return echo.NewHTTPError(http.StatusInternalServerError, "Can't get file")
	}
	defer file.Close()
	stGetter, ok := file.(interface{ Stat() (fs.FileInfo, error) })
	if !ok {
		goapp.Log.Error().Msg(`file does implement "interface{ Stat() (fs.FileInfo, error)"`)
		return echo.NewHTTPError(http.StatusInternalServerError, "Can't get file stat")
	}
	stat, err := stGetter.Stat()
	if err != nil {
		if isNotFound(err) {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		goapp.Log.Error().Err(err).Send()
		return echo.NewHTTPError(http.StatusInternalServerError, "Can't get file stat")
	}

	w := c.Response()
	http.ServeContent(w, c.Request(), stat.Name(), stat.ModTime(), file)
	return nil
}

func isNotFound(err error) bool {
	var errTest minio.ErrorResponse
	return errors.As(err, &errTest) && errTest.StatusCode == http.StatusNotFound
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	}}

func subscribeHandler(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		ws, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return err
		}
		defer ws.Close()

		return data.WSHandler.HandleConnection(ws)
	}
}

func extractOwnerID(header http.Header) int64 {
	res, err := strconv.ParseInt(header.Get(api.HdrOwnerID), 10, 64)
	if err != nil {
		return 0
	}
	return res
}

func cleanFiles(f *multipart.Form) {
	if f != nil {
		_ = f.RemoveAll()
	}
}

func takeFile(form *multipart.Form, paramName string) (multipart.File, *multipart.FileHeader, error) {
	fhs := form.File[paramName]
	if len(fhs) == 0 {
		return nil, nil, http.ErrMissingFile
	}
	handler := fhs[0]
	file, err := handler.Open()
	return file, handler, err
}
