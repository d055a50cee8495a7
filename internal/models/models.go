package models

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ModelID tags an assistant message with the endpoint that produced it.
type ModelID string

const (
	ModelOne ModelID = "model1"
	ModelTwo ModelID = "model2"
)

// AllModels lists both slots in dispatch and merge order.
var AllModels = []ModelID{ModelOne, ModelTwo}

// Other returns the opposite slot.
func (id ModelID) Other() ModelID {
	if id == ModelOne {
		return ModelTwo
	}
	return ModelOne
}

func (id ModelID) Valid() bool {
	return id == ModelOne || id == ModelTwo
}

func (id ModelID) Label() string {
	switch id {
	case ModelOne:
		return "AI Model V1"
	case ModelTwo:
		return "AI Model V2"
	default:
		return string(id)
	}
}

// Message is one entry of a chat's canonical transcript.
type Message struct {
	Role    string  `json:"role"`
	Content string  `json:"content"`
	Model   ModelID `json:"model,omitempty"`
}

// Chat is the persisted conversation. Selections maps a turn number to the
// model the user picked for that dual-response turn.
type Chat struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Messages   []Message       `json:"messages"`
	Selections map[int]ModelID `json:"selections,omitempty"`
	CreatedAt  int64           `json:"createdAt"`
	UpdatedAt  int64           `json:"updatedAt"`
}

// Clone returns a deep copy so callers outside the session cannot mutate it.
func (c Chat) Clone() Chat {
	out := c
	out.Messages = append([]Message(nil), c.Messages...)
	if c.Selections != nil {
		out.Selections = make(map[int]ModelID, len(c.Selections))
		for k, v := range c.Selections {
			out.Selections[k] = v
		}
	}
	return out
}

// UserTurns counts the user messages, which is also the latest turn number.
func (c Chat) UserTurns() int {
	n := 0
	for _, m := range c.Messages {
		if m.Role == RoleUser {
			n++
		}
	}
	return n
}

// HistoryEntry is one element of a per-model prompt context.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Turn    int    `json:"-"`
}

type ChatListItem struct {
	ID            string
	Title         string
	Preview       string
	UpdatedAtUnix int64
	Current       bool
}

// DayLayout formats the TokenUsage date stamp.
const DayLayout = "2006-01-02"

// TokenUsage is the daily token counter. Date is a YYYY-MM-DD stamp.
type TokenUsage struct {
	Today int    `json:"today"`
	Date  string `json:"date"`
}

const (
	KindOpenAI = "openai"
	KindGemini = "gemini"
)

// Endpoint is everything needed to reach one upstream model.
type Endpoint struct {
	Enabled bool
	APIKey  string
	URL     string
	Kind    string
	Model   string
}

// Configured reports whether the endpoint is enabled and credentialed.
func (e Endpoint) Configured() bool {
	return e.Enabled && e.APIKey != ""
}

// Settings is the persisted per-model configuration edited by the user.
type Settings struct {
	Model1Enabled bool   `json:"model1Enabled"`
	Model2Enabled bool   `json:"model2Enabled"`
	APIKey1       string `json:"apiKey1"`
	APIKey2       string `json:"apiKey2"`
	APIURL1       string `json:"apiUrl1"`
	APIURL2       string `json:"apiUrl2"`
	Kind1         string `json:"kind1,omitempty"`
	Kind2         string `json:"kind2,omitempty"`
	ModelName1    string `json:"modelName1,omitempty"`
	ModelName2    string `json:"modelName2,omitempty"`
}

func (s Settings) Endpoint(id ModelID) Endpoint {
	if id == ModelOne {
		return Endpoint{Enabled: s.Model1Enabled, APIKey: s.APIKey1, URL: s.APIURL1, Kind: s.Kind1, Model: s.ModelName1}
	}
	return Endpoint{Enabled: s.Model2Enabled, APIKey: s.APIKey2, URL: s.APIURL2, Kind: s.Kind2, Model: s.ModelName2}
}

// SetEndpoint writes e back into the slot for id.
func (s *Settings) SetEndpoint(id ModelID, e Endpoint) {
	if id == ModelOne {
		s.Model1Enabled, s.APIKey1, s.APIURL1, s.Kind1, s.ModelName1 = e.Enabled, e.APIKey, e.URL, e.Kind, e.Model
		return
	}
	s.Model2Enabled, s.APIKey2, s.APIURL2, s.Kind2, s.ModelName2 = e.Enabled, e.APIKey, e.URL, e.Kind, e.Model
}
