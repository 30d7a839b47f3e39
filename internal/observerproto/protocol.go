package observerproto

// Version is the observer protocol version.
const Version = "1.0"

// Message types.
const (
	TypeView  = "VIEW"
	TypeTiles = "TILES"
	TypeMove  = "MOVE"
	TypeMoved = "MOVED"
	TypeSet   = "SET"
	TypeAck   = "ACK"
	TypeError = "ERROR"
)

// Tile payload encodings for TILES.
const (
	EncodingRLE  = "rle"
	EncodingList = "list"
)

// Envelope is decoded first to route a client message by type.
type Envelope struct {
	Type string `json:"type"`
}

// Client -> Server. Read a w*h window of tiles starting at (x, y).
type ViewMsg struct {
	Type     string `json:"type"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	W        int    `json:"w"`
	H        int    `json:"h"`
	Encoding string `json:"encoding,omitempty"`
}

// Server -> Client. Row-major tile tags, either as a list or as base64 RLE
// (uvarint tag/run pairs).
type TilesMsg struct {
	Type     string `json:"type"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	W        int    `json:"w"`
	H        int    `json:"h"`
	Encoding string `json:"encoding"`
	Tiles    []int  `json:"tiles,omitempty"`
	RLE      string `json:"rle,omitempty"`
}

// Client -> Server. Move the viewer.
type MoveMsg struct {
	Type string `json:"type"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

// Server -> Client. EvictError reports chunks that left the window but could
// not be saved; the move itself was applied.
type MovedMsg struct {
	Type       string `json:"type"`
	CX         int    `json:"cx"`
	CY         int    `json:"cy"`
	Changed    bool   `json:"changed"`
	Resident   int    `json:"resident"`
	EvictError string `json:"evict_error,omitempty"`
}

// Client -> Server. Tile is a tile name such as "WALL".
type SetMsg struct {
	Type string `json:"type"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Tile string `json:"tile"`
}

type AckMsg struct {
	Type string `json:"type"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Tile string `json:"tile"`
}

type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// HTTP response for GET /v1/observe/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string         `json:"protocol_version"`
	Tick            uint64         `json:"tick"`
	WorldParams     WorldParams    `json:"world_params"`
	TilePalette     []string       `json:"tile_palette"`
	TileCounts      map[string]int `json:"tile_counts"`
}

type WorldParams struct {
	ChunkSize  int   `json:"chunk_size"`
	ViewChunks int   `json:"view_chunks"`
	TickRateHz int   `json:"tick_rate_hz"`
	Seed       int64 `json:"seed"`
	MaxRect    int   `json:"max_rect"`
}
