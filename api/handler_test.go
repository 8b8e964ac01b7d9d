package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"contact-lab/domain"
	"contact-lab/errors"
	"contact-lab/mocks"
	"contact-lab/observability"
	"contact-lab/repositories"
	"contact-lab/runtime"
	"contact-lab/services"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type response struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Count   *int            `json:"count"`
	Data    json.RawMessage `json:"data"`
	Errors  []fieldError    `json:"errors"`
}

func newGateway(t *testing.T) (*httptest.Server, *runtime.Registry) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.Default()
	metrics := observability.NewMetrics()
	registry := runtime.NewRegistry(log, metrics)
	service := services.NewContactService(repositories.NewContactRepository(db, log), registry, log, metrics)
	server := httptest.NewServer(NewRouter(log, NewHandler(log, service, registry, 16, "*"), metrics))
	t.Cleanup(server.Close)
	return server, registry
}

func postContact(t *testing.T, baseURL string, body string) (int, response) {
	t.Helper()
	resp, err := http.Post(baseURL+"/api/contacts", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var decoded response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func getContacts(t *testing.T, baseURL string) response {
	t.Helper()
	resp, err := http.Get(baseURL + "/api/contacts")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var decoded response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return decoded
}

const validBody = `{"name":"Jane Doe","email":"Jane@Example.com","phone":"123 456 7890","message":"Hello, I need some help"}`

func TestHandler_Info(t *testing.T) {
	req := require.New(t)
	server, _ := newGateway(t)

	resp, err := http.Get(server.URL + "/")
	req.NoError(err)
	defer resp.Body.Close()

	req.Equal(http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	req.NoError(err)
	req.Contains(string(body), "POST /api/contacts")
}

func TestHandler_List_Empty(t *testing.T) {
	req := require.New(t)
	server, _ := newGateway(t)

	decoded := getContacts(t, server.URL)

	req.True(decoded.Success)
	req.NotNil(decoded.Count)
	req.Zero(*decoded.Count)
	req.JSONEq(`[]`, string(decoded.Data))
}

func TestHandler_Create_Then_List(t *testing.T) {
	req := require.New(t)
	server, _ := newGateway(t)

	status, created := postContact(t, server.URL, validBody)

	req.Equal(http.StatusCreated, status)
	req.True(created.Success)
	req.Equal("Contact created successfully", created.Message)
	var contact domain.Contact
	req.NoError(json.Unmarshal(created.Data, &contact))
	req.Equal("jane@example.com", contact.Email)
	req.Equal("1234567890", contact.Phone)

	listed := getContacts(t, server.URL)
	req.Equal(1, *listed.Count)
	var contacts []domain.Contact
	req.NoError(json.Unmarshal(listed.Data, &contacts))
	req.Equal(contact.ID, contacts[0].ID)
}

func TestHandler_Create_Invalid(t *testing.T) {
	req := require.New(t)
	server, _ := newGateway(t)

	status, decoded := postContact(t, server.URL, `{"name":"J","email":"jane@example.com","phone":"12345"}`)

	req.Equal(http.StatusBadRequest, status)
	req.False(decoded.Success)
	req.Equal("Validation failed", decoded.Message)
	req.Equal([]fieldError{
		{Path: "name", Msg: "Name must be between 2 and 100 characters"},
		{Path: "phone", Msg: "Please provide a valid 10-digit phone number"},
	}, decoded.Errors)
}

func TestHandler_Create_Malformed_Body(t *testing.T) {
	req := require.New(t)
	server, _ := newGateway(t)

	status, decoded := postContact(t, server.URL, `{"name":`)

	req.Equal(http.StatusBadRequest, status)
	req.Equal("Invalid request body", decoded.Message)
}

func TestHandler_Create_Duplicate(t *testing.T) {
	req := require.New(t)
	server, _ := newGateway(t)

	status, _ := postContact(t, server.URL, validBody)
	req.Equal(http.StatusCreated, status)

	status, decoded := postContact(t, server.URL, strings.Replace(validBody, "Jane@Example.com", "JANE@example.com", 1))

	req.Equal(http.StatusConflict, status)
	req.Equal("A contact with this email already exists", decoded.Message)
	req.Equal(1, *getContacts(t, server.URL).Count)
}

func TestHandler_Store_Unavailable(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	service := mocks.NewMockIContactService(ctrl)
	service.EXPECT().ListContacts(gomock.Any()).Return(nil, errors.ErrStoreUnavailable)
	log := slog.Default()
	metrics := observability.NewMetrics()
	server := httptest.NewServer(NewRouter(log, NewHandler(log, service, runtime.NewRegistry(log, metrics), 4, "*"), metrics))
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/contacts")
	req.NoError(err)
	defer resp.Body.Close()

	req.Equal(http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHandler_Websocket_Feed(t *testing.T) {
	req := require.New(t)
	server, registry := newGateway(t)
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/contacts/ws"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	req.NoError(err)
	req.NoError(conn.SetReadDeadline(time.Now().Add(5 * time.Second)))

	// Given the subscription is confirmed
	var msg wsMessage
	req.NoError(conn.ReadJSON(&msg))
	req.Equal("ready", msg.Event)
	req.Equal(1, registry.Count())

	// When a contact is created over REST
	status, created := postContact(t, server.URL, validBody)
	req.Equal(http.StatusCreated, status)
	var contact domain.Contact
	req.NoError(json.Unmarshal(created.Data, &contact))

	// Then it is pushed to the browser
	req.NoError(conn.ReadJSON(&msg))
	req.Equal("newContact", msg.Event)
	req.Equal(contact.ID, msg.Data.ID)

	// And closing the socket releases the subscription
	req.NoError(conn.Close())
	req.Eventually(func() bool { return registry.Count() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestHandler_Metrics(t *testing.T) {
	req := require.New(t)
	server, _ := newGateway(t)
	status, _ := postContact(t, server.URL, validBody)
	req.Equal(http.StatusCreated, status)

	resp, err := http.Get(server.URL + "/metrics")
	req.NoError(err)
	defer resp.Body.Close()
	var body bytes.Buffer
	_, err = body.ReadFrom(resp.Body)
	req.NoError(err)

	req.Contains(body.String(), "contactlab_contacts_created_total 1")
}

func TestHandler_Healthz(t *testing.T) {
	req := require.New(t)
	server, _ := newGateway(t)

	resp, err := http.Get(server.URL + "/healthz")
	req.NoError(err)
	defer resp.Body.Close()

	req.Equal(http.StatusOK, resp.StatusCode)
}
