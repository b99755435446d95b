package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/andreyxaxa/Ephemeral-Chat/internal/admission"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/controller/restapi/middleware"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/dto"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/entity"
	"github.com/andreyxaxa/Ephemeral-Chat/pkg/logger"
	"github.com/andreyxaxa/Ephemeral-Chat/pkg/types/errs"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type fakeMedia struct {
	err error

	created  dto.Upload
	sender   string
	receiver string
	actor    entity.Actor
}

func (f *fakeMedia) CreateImageMessage(_ context.Context, senderID, receiverID string, upload dto.Upload) (*entity.MediaRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sender, f.receiver, f.created = senderID, receiverID, upload

	return &entity.MediaRecord{
		ID:              uuid.New(),
		ConversationKey: entity.NewConversationKey(senderID, receiverID),
		SenderID:        senderID,
		ReceiverID:      receiverID,
		SniffedFormat:   entity.FormatPNG,
		PayloadSize:     int64(len(upload.Data)),
		State:           entity.StateActive,
		Preview:         entity.PreviewImage,
		CreatedAt:       time.Now(),
	}, nil
}

func (f *fakeMedia) MarkViewed(_ context.Context, _ uuid.UUID, actor entity.Actor) (dto.ViewWindow, error) {
	f.actor = actor
	now := time.Now()

	return dto.ViewWindow{ViewedAt: now, ExpiresAt: now.Add(time.Minute)}, f.err
}

func (f *fakeMedia) ForceExpire(_ context.Context, _ uuid.UUID, actor entity.Actor) error {
	f.actor = actor

	return f.err
}

func (f *fakeMedia) MarkRead(_ context.Context, _ uuid.UUID, actor entity.Actor) error {
	f.actor = actor

	return f.err
}

func (f *fakeMedia) GetForClient(_ context.Context, id uuid.UUID, actor entity.Actor) (*dto.ClientMedia, error) {
	f.actor = actor
	if f.err != nil {
		return nil, f.err
	}

	return &dto.ClientMedia{ID: id, Expired: true, Preview: entity.PreviewExpired, State: entity.StateExpired}, nil
}

func (f *fakeMedia) SerializeForClient(context.Context, *entity.MediaRecord, string) (*dto.ClientMedia, error) {
	return nil, nil
}

func (f *fakeMedia) PrecheckUpload(declaredType string, size int64) error {
	res := admission.New(1024).ValidateMetadata(declaredType, size)
	if !res.Accepted {
		return &admission.RejectionError{Reason: res.Reason}
	}

	return nil
}

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func newTestApp(t *testing.T, media *fakeMedia) (*fiber.App, func(entity.Actor) string) {
	t.Helper()

	auth := middleware.NewAuth("secret", "", 0, logger.NewNop())
	app := fiber.New()
	NewMessageRoutes(app.Group("/v1", auth.Handler()), media, logger.NewNop())

	sign := func(actor entity.Actor) string {
		token, err := auth.Sign(actor, time.Minute)
		if err != nil {
			t.Fatal(err)
		}

		return "Bearer " + token
	}

	return app, sign
}

func uploadRequest(t *testing.T, contentType string, data []byte, receiver string) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	if receiver != "" {
		_ = w.WriteField("receiver_id", receiver)
	}
	_ = w.WriteField("caption", "look")

	if data != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="a.png"`)
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = part.Write(data)
	}
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/messages/image", body)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())

	return req
}

func TestCreateImageMessage(t *testing.T) {
	media := &fakeMedia{}
	app, sign := newTestApp(t, media)

	req := uploadRequest(t, "image/png", pngHeader, "bob")
	req.Header.Set(fiber.HeaderAuthorization, sign(entity.Actor{ID: "alice"}))

	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, body %s", resp.StatusCode, b)
	}
	if media.sender != "alice" || media.receiver != "bob" {
		t.Errorf("sender/receiver = %q/%q", media.sender, media.receiver)
	}
	if media.created.DeclaredType != "image/png" || media.created.Caption != "look" || !bytes.Equal(media.created.Data, pngHeader) {
		t.Errorf("upload = %+v", media.created)
	}
}

func TestCreateImageMessage_Rejections(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		data        []byte
		receiver    string
		err         error
		status      int
	}{
		{name: "no receiver", contentType: "image/png", data: pngHeader, status: http.StatusBadRequest},
		{name: "no file", receiver: "bob", status: http.StatusBadRequest},
		{name: "colon in receiver", contentType: "image/png", data: pngHeader, receiver: "bob:admin", status: http.StatusBadRequest},
		{name: "svg", contentType: "image/svg+xml", data: pngHeader, receiver: "bob", status: http.StatusUnsupportedMediaType},
		{name: "too large", contentType: "image/png", data: make([]byte, 2048), receiver: "bob", status: http.StatusRequestEntityTooLarge},
		{
			name: "mismatch", contentType: "image/jpeg", data: pngHeader, receiver: "bob",
			err:    fmt.Errorf("wrapped: %w", &admission.RejectionError{Reason: admission.ReasonTypeMismatch}),
			status: http.StatusUnsupportedMediaType,
		},
		{
			name: "self", contentType: "image/png", data: pngHeader, receiver: "alice",
			err: errs.ErrSelfMessage, status: http.StatusBadRequest,
		},
		{
			name: "storage", contentType: "image/png", data: pngHeader, receiver: "bob",
			err: fmt.Errorf("s3 down"), status: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, sign := newTestApp(t, &fakeMedia{err: tt.err})

			req := uploadRequest(t, tt.contentType, tt.data, tt.receiver)
			req.Header.Set(fiber.HeaderAuthorization, sign(entity.Actor{ID: "alice"}))

			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}
}

func TestMessageRoutes_StatusMapping(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name   string
		method string
		path   string
		err    error
		status int
	}{
		{name: "get", method: http.MethodGet, path: "/v1/messages/" + id.String(), status: http.StatusOK},
		{name: "get bad id", method: http.MethodGet, path: "/v1/messages/nope", status: http.StatusBadRequest},
		{name: "get not found", method: http.MethodGet, path: "/v1/messages/" + id.String(), err: errs.ErrRecordNotFound, status: http.StatusNotFound},
		{name: "view", method: http.MethodPost, path: "/v1/messages/" + id.String() + "/view", status: http.StatusOK},
		{name: "view by sender", method: http.MethodPost, path: "/v1/messages/" + id.String() + "/view", err: errs.ErrForbidden, status: http.StatusForbidden},
		{name: "view unknown state", method: http.MethodPost, path: "/v1/messages/" + id.String() + "/view", err: errs.ErrIllegalTransition, status: http.StatusConflict},
		{name: "expire", method: http.MethodPost, path: "/v1/messages/" + id.String() + "/expire", status: http.StatusNoContent},
		{name: "read", method: http.MethodPost, path: "/v1/messages/" + id.String() + "/read", status: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			media := &fakeMedia{err: tt.err}
			app, sign := newTestApp(t, media)

			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.Header.Set(fiber.HeaderAuthorization, sign(entity.Actor{ID: "bob"}))

			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if tt.status < 300 && media.actor.ID != "bob" {
				t.Errorf("actor = %+v, want bob", media.actor)
			}
		})
	}
}

func TestGetMessage_ExpiredCarriesNoPayload(t *testing.T) {
	app, sign := newTestApp(t, &fakeMedia{})

	req := httptest.NewRequest(http.MethodGet, "/v1/messages/"+uuid.NewString(), nil)
	req.Header.Set(fiber.HeaderAuthorization, sign(entity.Actor{ID: "bob"}))

	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err = json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if _, ok := body["payload"]; ok {
		t.Error("expired message carries a payload")
	}
	if body["expired"] != true || body["preview"] != entity.PreviewExpired {
		t.Errorf("body = %v", body)
	}
}

func TestMessageRoutes_RequireAuth(t *testing.T) {
	app, _ := newTestApp(t, &fakeMedia{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/v1/messages/"+uuid.NewString(), nil))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}
