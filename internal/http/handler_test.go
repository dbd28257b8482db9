package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cachememory "github.com/mvfy/verify/internal/cache/memory"
	"github.com/mvfy/verify/internal/config"
	"github.com/mvfy/verify/internal/domain"
	verifyhttp "github.com/mvfy/verify/internal/http"
	"github.com/mvfy/verify/internal/mocks"
	storememory "github.com/mvfy/verify/internal/store/memory"
)

const testDim = 4

type fixture struct {
	handler   *verifyhttp.Handler
	extractor *mocks.MockExtractor
	registry  *domain.RegistryService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := storememory.NewIdentityStore()
	cache := cachememory.New(64)

	registry, err := domain.NewRegistryService(context.Background(), store, cache, nil, testDim)
	require.NoError(t, err)

	matcher, err := domain.NewMatchService(registry, cache, nil, domain.MatchConfig{
		Metric:    domain.MetricEuclidean,
		Threshold: 0.6,
		Epsilon:   1e-9,
		Dimension: testDim,
		Precision: 2,
		CacheTTL:  0,
	})
	require.NoError(t, err)

	extractor := mocks.NewMockExtractor(t)
	handler := verifyhttp.NewHandler(extractor, matcher, registry, nil, &config.VisitorConfig{Enabled: false})

	return &fixture{handler: handler, extractor: extractor, registry: registry}
}

func (f *fixture) register(t *testing.T, id string, emb domain.Embedding) {
	t.Helper()
	_, err := f.registry.Register(context.Background(), id, id, []domain.Embedding{emb})
	require.NoError(t, err)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHandleVerify_MatchesRegisteredFace(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", domain.Embedding{1, 0, 0, 0})

	f.extractor.EXPECT().
		Extract(mock.Anything, mock.Anything, "jpeg").
		Return([]domain.Detection{
			{Box: domain.BoundingBox{Top: 1, Right: 2, Bottom: 3, Left: 4}, Embedding: domain.Embedding{1, 0, 0, 0}},
		}, nil)

	req := httptest.NewRequest(http.MethodPost, "/verify", bytes.NewReader([]byte("jpeg-bytes")))
	req.Header.Set("Content-Type", "image/jpeg")
	req.Header.Set("X-Camera-Id", "lobby")
	rec := httptest.NewRecorder()

	f.handler.HandleVerify(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp verifyhttp.VerifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Faces, 1)
	require.True(t, resp.Faces[0].Result.Matched)
	require.Equal(t, "alice", resp.Faces[0].Result.IdentityID)
	require.Equal(t, domain.BoundingBox{Top: 1, Right: 2, Bottom: 3, Left: 4}, resp.Faces[0].Box)
}

func TestHandleVerify_NoFaces(t *testing.T) {
	f := newFixture(t)

	f.extractor.EXPECT().
		Extract(mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.Detection{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/verify", bytes.NewReader([]byte("jpeg-bytes")))
	rec := httptest.NewRecorder()

	f.handler.HandleVerify(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp verifyhttp.VerifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.Faces)
}

func TestHandleVerify_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unsupported image", domain.ErrUnsupportedImage, http.StatusUnsupportedMediaType},
		{"upstream failure", domain.UpstreamError(context.DeadlineExceeded), http.StatusBadGateway},
		{"validation", domain.ValidationError("bad input"), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.extractor.EXPECT().
				Extract(mock.Anything, mock.Anything, mock.Anything).
				Return(nil, tt.err)

			req := httptest.NewRequest(http.MethodPost, "/verify", bytes.NewReader([]byte("img")))
			rec := httptest.NewRecorder()

			f.handler.HandleVerify(rec, req)
			require.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestHandleVerify_MethodNotAllowed(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/verify", nil)
	rec := httptest.NewRecorder()

	f.handler.HandleVerify(rec, req)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleIdentities_RegisterAndList(t *testing.T) {
	f := newFixture(t)

	rec := postJSON(t, f.handler.HandleIdentities, "/identities", verifyhttp.RegisterRequest{
		ID:          "bob",
		DisplayName: "Bob",
		Embeddings:  []domain.Embedding{{0, 1, 0, 0}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created domain.Identity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "bob", created.ID)
	require.Equal(t, domain.StatusActive, created.Status)

	req := httptest.NewRequest(http.MethodGet, "/identities?status=active", nil)
	listRec := httptest.NewRecorder()
	f.handler.HandleIdentities(listRec, req)
	require.Equal(t, http.StatusOK, listRec.Code)

	var listed struct {
		Identities []domain.Identity `json:"identities"`
		Count      int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &listed))
	require.Equal(t, 1, listed.Count)
	require.Equal(t, "bob", listed.Identities[0].ID)
}

func TestHandleIdentities_GeneratesID(t *testing.T) {
	f := newFixture(t)

	rec := postJSON(t, f.handler.HandleIdentities, "/identities", verifyhttp.RegisterRequest{
		DisplayName: "Anon",
		Embeddings:  []domain.Embedding{{0, 0, 1, 0}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created domain.Identity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
}

func TestHandleIdentities_Conflict(t *testing.T) {
	f := newFixture(t)
	f.register(t, "carol", domain.Embedding{0, 0, 0, 1})

	rec := postJSON(t, f.handler.HandleIdentities, "/identities", verifyhttp.RegisterRequest{
		ID:          "carol",
		DisplayName: "Carol again",
		Embeddings:  []domain.Embedding{{0, 0, 0, 1}},
	})
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleIdentities_DimensionMismatch(t *testing.T) {
	f := newFixture(t)

	rec := postJSON(t, f.handler.HandleIdentities, "/identities", verifyhttp.RegisterRequest{
		ID:          "dave",
		DisplayName: "Dave",
		Embeddings:  []domain.Embedding{{1, 2}},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleIdentities_UnknownStatusFilter(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/identities?status=bogus", nil)
	rec := httptest.NewRecorder()
	f.handler.HandleIdentities(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleIdentity_Disable(t *testing.T) {
	f := newFixture(t)
	f.register(t, "erin", domain.Embedding{1, 1, 0, 0})

	body := bytes.NewReader([]byte(`{"status":"disabled"}`))
	req := httptest.NewRequest(http.MethodPatch, "/identities/erin", body)
	rec := httptest.NewRecorder()

	f.handler.HandleIdentity(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated domain.Identity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Equal(t, domain.StatusDisabled, updated.Status)

	// A disabled identity no longer participates in matching.
	snap := f.registry.Snapshot()
	require.Empty(t, snap.Identities)
}

func TestHandleIdentity_NotFound(t *testing.T) {
	f := newFixture(t)

	body := bytes.NewReader([]byte(`{"status":"disabled"}`))
	req := httptest.NewRequest(http.MethodPatch, "/identities/ghost", body)
	rec := httptest.NewRecorder()

	f.handler.HandleIdentity(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleIdentity_RejectsReactivation(t *testing.T) {
	f := newFixture(t)
	f.register(t, "frank", domain.Embedding{0, 1, 1, 0})

	body := bytes.NewReader([]byte(`{"status":"active"}`))
	req := httptest.NewRequest(http.MethodPatch, "/identities/frank", body)
	rec := httptest.NewRecorder()

	f.handler.HandleIdentity(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	f := newFixture(t)
	f.register(t, "gus", domain.Embedding{1, 0, 1, 0})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	f.handler.HandleHealth(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status string               `json:"status"`
		Stats  domain.RegistryStats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "healthy", resp.Status)
	require.Equal(t, 1, resp.Stats.Active)
}
