package media

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofra/media/internal/category"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Failed  []FailedUpload  `json:"failed"`
}

func newTestRouter(svc *Service) chi.Router {
	h := NewHandler(svc)
	r := chi.NewRouter()
	r.Route("/api/images", func(r chi.Router) {
		r.Post("/upload", h.Upload)
		r.Post("/upload-multiple", h.UploadMultiple)
		r.Delete("/delete", h.Delete)
		r.Get("/info/{category}/{filename}", h.Info)
	})
	return r
}

type part struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

func multipartBody(t *testing.T, fields map[string]string, parts []part) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, p := range parts {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="`+p.filename+`"`)
		hdr.Set("Content-Type", p.contentType)
		w, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = w.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func doRequest(r chi.Router, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestUploadEndpoint(t *testing.T) {
	fake := newFakeStorage()
	r := newTestRouter(NewService(fake, nil))

	f := jpegFile(t, "margherita.jpg", 120, 90)
	body, ct := multipartBody(t, map[string]string{"category": "menuItems"},
		[]part{{field: "image", filename: f.OriginalName, contentType: f.ContentType, data: f.Data}})

	rec := doRequest(r, http.MethodPost, "/api/images/upload", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)

	var img StoredImage
	require.NoError(t, json.Unmarshal(env.Data, &img))
	assert.Equal(t, "menuItems", string(img.Category))
	assert.Regexp(t, `^menuItems/\d+-[a-z0-9]+\.jpe?g$`, img.Path)
	assert.Equal(t, "margherita.jpg", img.OriginalName)
	assert.NotEmpty(t, img.ThumbnailURL)
}

func TestUploadEndpointOversizedFile(t *testing.T) {
	fake := newFakeStorage()
	r := newTestRouter(NewService(fake, nil))

	// A 6MB payload declared as PNG: rejected on size before storage or
	// decoding is attempted.
	body, ct := multipartBody(t, map[string]string{"category": "general"},
		[]part{{field: "image", filename: "big.png", contentType: "image/png", data: make([]byte, 6<<20)}})

	rec := doRequest(r, http.MethodPost, "/api/images/upload", body, ct)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Contains(t, env.Message, "size limit")
	assert.Empty(t, fake.putCalls)
}

func TestUploadEndpointRejectsGiantBody(t *testing.T) {
	fake := newFakeStorage()
	r := newTestRouter(NewService(fake, nil))

	// Bigger than the whole-request ceiling: rejected while parsing, before
	// anything is spooled or validated per file.
	body, ct := multipartBody(t, nil,
		[]part{{field: "image", filename: "blob.jpg", contentType: "image/jpeg", data: make([]byte, 11<<20)}})

	rec := doRequest(r, http.MethodPost, "/api/images/upload", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, decodeEnvelope(t, rec).Success)
	assert.Empty(t, fake.putCalls)
}

func TestUploadEndpointNoFile(t *testing.T) {
	r := newTestRouter(NewService(newFakeStorage(), nil))

	body, ct := multipartBody(t, map[string]string{"category": "general"}, nil)
	rec := doRequest(r, http.MethodPost, "/api/images/upload", body, ct)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadEndpointInvalidCategory(t *testing.T) {
	fake := newFakeStorage()
	r := newTestRouter(NewService(fake, nil))

	f := jpegFile(t, "a.jpg", 10, 10)
	body, ct := multipartBody(t, map[string]string{"category": "desserts"},
		[]part{{field: "image", filename: f.OriginalName, contentType: f.ContentType, data: f.Data}})

	rec := doRequest(r, http.MethodPost, "/api/images/upload", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, fake.putCalls)
}

func TestUploadEndpointBackendUnavailable(t *testing.T) {
	r := newTestRouter(NewService(nil, nil))

	f := jpegFile(t, "a.jpg", 10, 10)
	body, ct := multipartBody(t, nil,
		[]part{{field: "image", filename: f.OriginalName, contentType: f.ContentType, data: f.Data}})

	rec := doRequest(r, http.MethodPost, "/api/images/upload", body, ct)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUploadMultipleEndpoint(t *testing.T) {
	fake := newFakeStorage()
	r := newTestRouter(NewService(fake, nil))

	a := jpegFile(t, "a.jpg", 20, 20)
	b := jpegFile(t, "b.jpg", 20, 20)
	body, ct := multipartBody(t, map[string]string{"category": "offers"}, []part{
		{field: "images", filename: a.OriginalName, contentType: a.ContentType, data: a.Data},
		{field: "images", filename: b.OriginalName, contentType: b.ContentType, data: b.Data},
		{field: "images", filename: "huge.jpg", contentType: "image/jpeg", data: make([]byte, MaxFileSize+1)},
	})

	rec := doRequest(r, http.MethodPost, "/api/images/upload-multiple", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)

	var stored []StoredImage
	require.NoError(t, json.Unmarshal(env.Data, &stored))
	assert.Len(t, stored, 2)
	require.Len(t, env.Failed, 1)
	assert.Equal(t, "huge.jpg", env.Failed[0].OriginalName)
	assert.Len(t, fake.putCalls, 2)
}

func TestUploadMultipleEndpointNoFiles(t *testing.T) {
	r := newTestRouter(NewService(newFakeStorage(), nil))

	body, ct := multipartBody(t, map[string]string{"category": "offers"}, nil)
	rec := doRequest(r, http.MethodPost, "/api/images/upload-multiple", body, ct)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteEndpoint(t *testing.T) {
	fake := newFakeStorage()
	svc := NewService(fake, nil)
	r := newTestRouter(svc)

	img, err := svc.Upload(context.Background(), jpegFile(t, "old.jpg", 30, 30), category.General, false)
	require.NoError(t, err)

	body := bytes.NewBufferString(`{"url":"` + img.URL + `","category":"general"}`)
	rec := doRequest(r, http.MethodDelete, "/api/images/delete", body, "application/json")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decodeEnvelope(t, rec).Success)
	assert.Contains(t, fake.removeCalls, "general-images/"+img.Path)
}

func TestDeleteEndpointUnknownPrefix(t *testing.T) {
	fake := newFakeStorage()
	r := newTestRouter(NewService(fake, nil))

	body := bytes.NewBufferString(`{"url":"https://other.example/x.jpg","category":"general"}`)
	rec := doRequest(r, http.MethodDelete, "/api/images/delete", body, "application/json")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, fake.removeCalls)
}

func TestDeleteEndpointMissingURL(t *testing.T) {
	r := newTestRouter(NewService(newFakeStorage(), nil))

	body := bytes.NewBufferString(`{"category":"general"}`)
	rec := doRequest(r, http.MethodDelete, "/api/images/delete", body, "application/json")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInfoEndpoint(t *testing.T) {
	fake := newFakeStorage()
	svc := NewService(fake, nil)
	r := newTestRouter(svc)

	img, err := svc.Upload(context.Background(), jpegFile(t, "shot.jpg", 25, 25), category.Restaurants, false)
	require.NoError(t, err)

	rec := doRequest(r, http.MethodGet, "/api/images/info/restaurants/"+img.Filename, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env := decodeEnvelope(t, rec)
	var info ImageInfo
	require.NoError(t, json.Unmarshal(env.Data, &info))
	assert.Equal(t, img.Filename, info.Filename)
	assert.Equal(t, img.Size, info.Size)
	assert.True(t, strings.HasSuffix(info.URL, img.Path))
}

func TestInfoEndpointNotFound(t *testing.T) {
	r := newTestRouter(NewService(newFakeStorage(), nil))

	rec := doRequest(r, http.MethodGet, "/api/images/info/general/123-missing.jpg", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInfoEndpointInvalidCategory(t *testing.T) {
	r := newTestRouter(NewService(newFakeStorage(), nil))

	rec := doRequest(r, http.MethodGet, "/api/images/info/desserts/123-x.jpg", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
