package devtools

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atomkit-dev/atomkit/pkg/atomkit"
)

func TestRegistryRecordsCreations(t *testing.T) {
	reg := NewRegistry(nil)
	restore := reg.Install()
	defer restore()

	atomkit.NewAtom(1, atomkit.WithKey[int]("count"))
	atomkit.NewEvent(atomkit.WithEventKey[string]("clicks"))

	cells := reg.Cells()
	require.Len(t, cells, 2)
	assert.Equal(t, "mutable", cells[0].Kind)
	assert.Equal(t, "count", cells[0].Key)
	assert.Equal(t, "event", cells[1].Kind)
	assert.Equal(t, uint64(2), cells[1].Seq)
}

func TestRegistryChainsDownstreamObserver(t *testing.T) {
	var downstream []atomkit.CellInfo
	next := observerFunc(func(info atomkit.CellInfo) {
		downstream = append(downstream, info)
	})
	reg := NewRegistry(next)

	reg.CellCreated(atomkit.CellInfo{Kind: atomkit.KindMutable, Key: "a"})
	require.Len(t, downstream, 1)
	assert.Equal(t, "a", downstream[0].Key)
}

type observerFunc func(atomkit.CellInfo)

func (f observerFunc) CellCreated(info atomkit.CellInfo) { f(info) }

func TestCellsEndpoint(t *testing.T) {
	reg := NewRegistry(nil)
	reg.CellCreated(atomkit.CellInfo{Kind: atomkit.KindDerived, Key: "sum"})

	srv := httptest.NewServer(NewServer(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/cells")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body cellsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Cells, 1)
	assert.Equal(t, "derived", body.Cells[0].Kind)
	assert.Equal(t, "sum", body.Cells[0].Key)
}

func TestWebsocketStream(t *testing.T) {
	reg := NewRegistry(nil)
	reg.CellCreated(atomkit.CellInfo{Kind: atomkit.KindMutable, Key: "existing"})

	srv := httptest.NewServer(NewServer(reg))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	// The current inventory replays first
	var rec CellRecord
	require.NoError(t, conn.ReadJSON(&rec))
	assert.Equal(t, "existing", rec.Key)

	// Live creations stream afterwards
	reg.CellCreated(atomkit.CellInfo{Kind: atomkit.KindEvent, Key: "live"})
	require.NoError(t, conn.ReadJSON(&rec))
	assert.Equal(t, "event", rec.Kind)
	assert.Equal(t, "live", rec.Key)
}
