package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authDomain "github.com/tnptm/next-djchat/internal/auth/domain"
	authHTTP "github.com/tnptm/next-djchat/internal/auth/http"
	messageDomain "github.com/tnptm/next-djchat/internal/message/domain"
	"github.com/tnptm/next-djchat/internal/message/http/dto"
	messageUseCase "github.com/tnptm/next-djchat/internal/message/usecase"
	roomDomain "github.com/tnptm/next-djchat/internal/room/domain"
)

type mockMessageUseCase struct {
	mock.Mock
}

func (m *mockMessageUseCase) Send(
	ctx context.Context,
	input messageUseCase.SendMessageInput,
) (*messageDomain.Message, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*messageDomain.Message), args.Error(1)
}

func (m *mockMessageUseCase) Fetch(
	ctx context.Context,
	readerID, roomID uuid.UUID,
	offset, limit int,
) ([]*messageDomain.Message, error) {
	args := m.Called(ctx, readerID, roomID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*messageDomain.Message), args.Error(1)
}

func (m *mockMessageUseCase) Get(
	ctx context.Context,
	readerID, roomID, messageID uuid.UUID,
) (*messageDomain.Message, error) {
	args := m.Called(ctx, readerID, roomID, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*messageDomain.Message), args.Error(1)
}

func (m *mockMessageUseCase) GetAttachment(
	ctx context.Context,
	userID, attachmentID uuid.UUID,
) (*messageDomain.AttachmentContent, error) {
	args := m.Called(ctx, userID, attachmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*messageDomain.AttachmentContent), args.Error(1)
}

type trackingCloser struct {
	io.Reader
	closed bool
}

func (t *trackingCloser) Close() error {
	t.closed = true
	return nil
}

var alice = &authDomain.Principal{ID: uuid.New(), Username: "alice", Email: "alice@example.com"}

func fileURL(id string) string {
	return "https://chat.example/v1/attachments/" + id
}

func setupRouter(t *testing.T, maxAttachmentSize int64) (*gin.Engine, *mockMessageUseCase) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	useCase := &mockMessageUseCase{}
	handler := NewMessageHandler(useCase, fileURL, maxAttachmentSize, slog.New(slog.NewTextHandler(io.Discard, nil)))

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if c.GetHeader("X-Anonymous") == "" {
			c.Request = c.Request.WithContext(authHTTP.WithPrincipal(c.Request.Context(), alice))
		}
		c.Next()
	})
	router.POST("/v1/rooms/:id/messages", handler.SendHandler)
	router.GET("/v1/rooms/:id/messages", handler.ListHandler)
	router.GET("/v1/rooms/:id/messages/:message_id", handler.GetHandler)
	router.POST("/v1/rooms/:id/files", handler.UploadHandler)
	router.GET("/v1/attachments/:id", handler.DownloadHandler)

	t.Cleanup(func() { useCase.AssertExpectations(t) })
	return router, useCase
}

func doJSON(router *gin.Engine, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func multipartBody(t *testing.T, filename, contentType string, content []byte, plaintext string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if plaintext != "" {
		require.NoError(t, writer.WriteField("plaintext", plaintext))
	}
	if filename != "" {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		header.Set("Content-Type", contentType)
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func sentMessage(roomID uuid.UUID, text string) *messageDomain.Message {
	username := alice.Username
	return &messageDomain.Message{
		ID:             uuid.New(),
		RoomID:         roomID,
		SenderID:       &alice.ID,
		SenderUsername: &username,
		Ciphertext:     []byte("ciphertext-must-not-leak"),
		Plaintext:      []byte(text),
		CreatedAt:      time.Now().UTC(),
		Attachments:    []*messageDomain.Attachment{},
	}
}

func TestMessageHandler_Send(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router, useCase := setupRouter(t, 1024)
		roomID := uuid.New()
		message := sentMessage(roomID, "hello")

		useCase.On("Send", mock.Anything, messageUseCase.SendMessageInput{
			SenderID:       alice.ID,
			SenderUsername: "alice",
			RoomID:         roomID,
			Plaintext:      "hello",
		}).Return(message, nil).Once()

		w := doJSON(router, http.MethodPost, "/v1/rooms/"+roomID.String()+"/messages", map[string]string{"plaintext": "hello"})

		require.Equal(t, http.StatusCreated, w.Code)
		assert.NotContains(t, w.Body.String(), "ciphertext-must-not-leak")

		var resp dto.MessageResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, message.ID.String(), resp.ID)
		assert.Equal(t, "hello", resp.Plaintext)
		require.NotNil(t, resp.Sender)
		assert.Equal(t, "alice", *resp.Sender)
	})

	t.Run("Error_NotMember", func(t *testing.T) {
		router, useCase := setupRouter(t, 1024)
		useCase.On("Send", mock.Anything, mock.Anything).Return(nil, roomDomain.ErrNotRoomMember).Once()

		w := doJSON(router, http.MethodPost, "/v1/rooms/"+uuid.NewString()+"/messages", map[string]string{"plaintext": "hi"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Error_Empty", func(t *testing.T) {
		router, useCase := setupRouter(t, 1024)
		useCase.On("Send", mock.Anything, mock.Anything).Return(nil, messageDomain.ErrEmptyMessage).Once()

		w := doJSON(router, http.MethodPost, "/v1/rooms/"+uuid.NewString()+"/messages", map[string]string{"plaintext": ""})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Error_InvalidRoomID", func(t *testing.T) {
		router, _ := setupRouter(t, 1024)
		w := doJSON(router, http.MethodPost, "/v1/rooms/general/messages", map[string]string{"plaintext": "hi"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Error_Unauthenticated", func(t *testing.T) {
		router, _ := setupRouter(t, 1024)
		w := doJSON(router, http.MethodPost, "/v1/rooms/"+uuid.NewString()+"/messages",
			map[string]string{"plaintext": "hi"}, "X-Anonymous", "1")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Error_TooLong", func(t *testing.T) {
		router, _ := setupRouter(t, 1024)
		w := doJSON(router, http.MethodPost, "/v1/rooms/"+uuid.NewString()+"/messages",
			map[string]string{"plaintext": strings.Repeat("x", dto.MaxPlaintextLength+1)})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Error_Internal", func(t *testing.T) {
		router, useCase := setupRouter(t, 1024)
		useCase.On("Send", mock.Anything, mock.Anything).Return(nil, assert.AnError).Once()

		w := doJSON(router, http.MethodPost, "/v1/rooms/"+uuid.NewString()+"/messages", map[string]string{"plaintext": "hi"})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), assert.AnError.Error())
	})
}

func TestMessageHandler_Upload(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router, useCase := setupRouter(t, 1024)
		roomID := uuid.New()
		message := sentMessage(roomID, "Shared file: notes.txt")
		attachmentID := uuid.New()
		message.Attachments = append(message.Attachments, &messageDomain.Attachment{
			ID:          attachmentID,
			MessageID:   message.ID,
			Filename:    "notes.txt",
			Size:        11,
			ContentType: "text/plain",
		})

		var received []byte
		useCase.On("Send", mock.Anything, mock.MatchedBy(func(in messageUseCase.SendMessageInput) bool {
			return in.RoomID == roomID && in.Plaintext == "" && in.Attachment != nil &&
				in.Attachment.Filename == "notes.txt" &&
				in.Attachment.ContentType == "text/plain" &&
				in.Attachment.Size == 11
		})).Run(func(args mock.Arguments) {
			in := args.Get(1).(messageUseCase.SendMessageInput)
			received, _ = io.ReadAll(in.Attachment.Content)
		}).Return(message, nil).Once()

		body, contentType := multipartBody(t, "notes.txt", "text/plain", []byte("hello world"), "")
		req := httptest.NewRequest(http.MethodPost, "/v1/rooms/"+roomID.String()+"/files", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, "hello world", string(received))

		var resp dto.MessageResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Shared file: notes.txt", resp.Plaintext)
		require.Len(t, resp.Attachments, 1)
		assert.Equal(t, fileURL(attachmentID.String()), resp.Attachments[0].FileURL)
		assert.Equal(t, "notes.txt", resp.Attachments[0].Filename)
	})

	t.Run("WithPlaintext", func(t *testing.T) {
		router, useCase := setupRouter(t, 1024)
		roomID := uuid.New()
		useCase.On("Send", mock.Anything, mock.MatchedBy(func(in messageUseCase.SendMessageInput) bool {
			return in.Plaintext == "quarterly numbers"
		})).Return(sentMessage(roomID, "quarterly numbers"), nil).Once()

		body, contentType := multipartBody(t, "q3.csv", "text/csv", []byte("a,b"), "quarterly numbers")
		req := httptest.NewRequest(http.MethodPost, "/v1/rooms/"+roomID.String()+"/files", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("Error_MissingFile", func(t *testing.T) {
		router, _ := setupRouter(t, 1024)
		body, contentType := multipartBody(t, "", "", nil, "no file here")
		req := httptest.NewRequest(http.MethodPost, "/v1/rooms/"+uuid.NewString()+"/files", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Error_BodyTooLarge", func(t *testing.T) {
		router, _ := setupRouter(t, 16)
		body, contentType := multipartBody(t, "big.bin", "application/octet-stream",
			bytes.Repeat([]byte{0x42}, 2*multipartOverhead), "")
		req := httptest.NewRequest(http.MethodPost, "/v1/rooms/"+uuid.NewString()+"/files", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Error_DeclaredTooLarge", func(t *testing.T) {
		router, useCase := setupRouter(t, 4)
		useCase.On("Send", mock.Anything, mock.Anything).Return(nil, messageDomain.ErrAttachmentTooLarge).Once()

		body, contentType := multipartBody(t, "five.txt", "text/plain", []byte("12345"), "")
		req := httptest.NewRequest(http.MethodPost, "/v1/rooms/"+uuid.NewString()+"/files", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestMessageHandler_List(t *testing.T) {
	t.Run("DefaultPagination", func(t *testing.T) {
		router, useCase := setupRouter(t, 1024)
		roomID := uuid.New()
		older, newer := sentMessage(roomID, "first"), sentMessage(roomID, "second")
		useCase.On("Fetch", mock.Anything, alice.ID, roomID, 0, 100).
			Return([]*messageDomain.Message{older, newer}, nil).Once()

		w := doJSON(router, http.MethodGet, "/v1/rooms/"+roomID.String()+"/messages", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp dto.ListMessagesResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 2)
		assert.Equal(t, "first", resp.Data[0].Plaintext)
		assert.Equal(t, "second", resp.Data[1].Plaintext)
	})

	t.Run("ExplicitPagination", func(t *testing.T) {
		router, useCase := setupRouter(t, 1024)
		roomID := uuid.New()
		useCase.On("Fetch", mock.Anything, alice.ID, roomID, 20, 10).Return([]*messageDomain.Message{}, nil).Once()

		w := doJSON(router, http.MethodGet, "/v1/rooms/"+roomID.String()+"/messages?offset=20&limit=10", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"data":[]}`, w.Body.String())
	})

	t.Run("Error_Internal", func(t *testing.T) {
		router, useCase := setupRouter(t, 1024)
		useCase.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, assert.AnError).Once()

		w := doJSON(router, http.MethodGet, "/v1/rooms/"+uuid.NewString()+"/messages", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("Error_NotMember", func(t *testing.T) {
		router, useCase := setupRouter(t, 1024)
		useCase.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, roomDomain.ErrNotRoomMember).Once()

		w := doJSON(router, http.MethodGet, "/v1/rooms/"+uuid.NewString()+"/messages", nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestMessageHandler_Get(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router, useCase := setupRouter(t, 1024)
		roomID := uuid.New()
		message := sentMessage(roomID, "ping")
		useCase.On("Get", mock.Anything, alice.ID, roomID, message.ID).Return(message, nil).Once()

		w := doJSON(router, http.MethodGet, "/v1/rooms/"+roomID.String()+"/messages/"+message.ID.String(), nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp dto.MessageResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "ping", resp.Plaintext)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		router, useCase := setupRouter(t, 1024)
		useCase.On("Get", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, messageDomain.ErrMessageNotFound).Once()

		w := doJSON(router, http.MethodGet, "/v1/rooms/"+uuid.NewString()+"/messages/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Error_InvalidMessageID", func(t *testing.T) {
		router, _ := setupRouter(t, 1024)
		w := doJSON(router, http.MethodGet, "/v1/rooms/"+uuid.NewString()+"/messages/latest", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestMessageHandler_Download(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router, useCase := setupRouter(t, 1024)
		attachmentID := uuid.New()
		content := &trackingCloser{Reader: strings.NewReader("%PDF-1.7")}
		useCase.On("GetAttachment", mock.Anything, alice.ID, attachmentID).Return(&messageDomain.AttachmentContent{
			Attachment: &messageDomain.Attachment{
				ID:          attachmentID,
				Filename:    "my report.pdf",
				Size:        8,
				ContentType: "application/pdf",
			},
			Content: content,
		}, nil).Once()

		w := doJSON(router, http.MethodGet, "/v1/attachments/"+attachmentID.String(), nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "%PDF-1.7", w.Body.String())
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="my report.pdf"`, w.Header().Get("Content-Disposition"))
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		assert.True(t, content.closed)
	})

	t.Run("Error_NotMember", func(t *testing.T) {
		router, useCase := setupRouter(t, 1024)
		useCase.On("GetAttachment", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, roomDomain.ErrNotRoomMember).Once()

		w := doJSON(router, http.MethodGet, "/v1/attachments/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		router, useCase := setupRouter(t, 1024)
		useCase.On("GetAttachment", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, messageDomain.ErrAttachmentNotFound).Once()

		w := doJSON(router, http.MethodGet, "/v1/attachments/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Error_InvalidID", func(t *testing.T) {
		router, _ := setupRouter(t, 1024)
		w := doJSON(router, http.MethodGet, "/v1/attachments/report.pdf", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
