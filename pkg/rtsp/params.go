package rtsp

// Parameter keys. The value kind of each key is fixed: url, url_ip,
// url_suffix, version and method are text, everything else is numeric.
const (
	KeyURL           = "url"
	KeyURLIP         = "url_ip"
	KeyURLPort       = "url_port"
	KeyURLSuffix     = "url_suffix"
	KeyVersion       = "version"
	KeyMethod        = "method"
	KeyCSeq          = "cseq"
	KeyRTPChannel    = "rtp_channel"
	KeyRTCPChannel   = "rtcp_channel"
	KeyRTPPort       = "rtp_port"
	KeyRTCPPort      = "rtcp_port"
	KeySession       = "session"
	KeyContentLength = "content_length"
)

// ValueKind tells which half of a Value is meaningful
type ValueKind int

const (
	KindText ValueKind = iota
	KindNumber
)

// Value is a parameter value: either text or an unsigned 32-bit number
type Value struct {
	kind ValueKind
	text string
	num  uint32
}

// Text creates a text value
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Number creates a numeric value
func Number(n uint32) Value {
	return Value{kind: KindNumber, num: n}
}

// Kind returns the value kind
func (v Value) Kind() ValueKind {
	return v.kind
}

// Text returns the text and whether the value is text
func (v Value) Text() (string, bool) {
	return v.text, v.kind == KindText
}

// Number returns the number and whether the value is numeric
func (v Value) Number() (uint32, bool) {
	return v.num, v.kind == KindNumber
}

// Params holds the fields extracted from one message. A key is written at
// most once; later inserts of the same key are ignored.
type Params struct {
	values map[string]Value
}

// NewParams creates an empty store
func NewParams() *Params {
	return &Params{values: make(map[string]Value)}
}

// Insert stores v under key unless the key is already present.
// It reports whether the value was stored.
func (p *Params) Insert(key string, v Value) bool {
	if _, exists := p.values[key]; exists {
		return false
	}
	p.values[key] = v
	return true
}

// Get returns the value stored under key
func (p *Params) Get(key string) (Value, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Has reports whether key is present
func (p *Params) Has(key string) bool {
	_, ok := p.values[key]
	return ok
}

// Text returns the text stored under key, or "" when absent or numeric
func (p *Params) Text(key string) string {
	s, _ := p.values[key].Text()
	return s
}

// Number returns the number stored under key, or 0 when absent or text
func (p *Params) Number(key string) uint32 {
	n, _ := p.values[key].Number()
	return n
}

// Len returns the number of stored keys
func (p *Params) Len() int {
	return len(p.values)
}

// Reset removes every key
func (p *Params) Reset() {
	clear(p.values)
}
