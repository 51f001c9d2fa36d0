package quota

import (
	"sync"
	"time"
)

// DefaultIdentity is used when no per-user binding exists for a request.
const DefaultIdentity = "shared"

const apologyMessage = "I'm so sorry, but I've chatted as much as I can today! My daily quota resets at midnight UTC — come back then and we'll pick up right where we left off. 💛"

// UsageRecord tracks one identity's counters for the current UTC day.
type UsageRecord struct {
	Date         string `json:"date"` // UTC calendar date, YYYY-MM-DD
	Requests     int    `json:"requests"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed bool
	// Message is the pre-rendered apology for a denied turn.
	Message   string
	Remaining int
}

type identityUsage struct {
	mu     sync.Mutex
	record UsageRecord
}

// Ledger tracks per-identity daily request and token counters with a lazy
// UTC-midnight reset: rollover is detected by comparing dates on every Admit,
// never by a background timer.
//
// Counters live only in process memory; restarts or multiple instances lose
// or fork the accounting; a shared store would be needed to scale
// horizontally. The identity map also grows with the number of distinct keys
// ever seen and is never pruned.
type Ledger struct {
	mu         sync.Mutex
	identities map[string]*identityUsage
	dailyLimit int
	now        func() time.Time
}

// NewLedger creates a ledger with the given daily request limit per identity.
func NewLedger(dailyLimit int) *Ledger {
	return &Ledger{
		identities: make(map[string]*identityUsage),
		dailyLimit: dailyLimit,
		now:        time.Now,
	}
}

// lookup returns the identity's usage entry, creating it on first sight.
// The global lock is held only for the map access, so a slow check for one
// identity never blocks other identities.
func (l *Ledger) lookup(identity string) *identityUsage {
	if identity == "" {
		identity = DefaultIdentity
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	u, ok := l.identities[identity]
	if !ok {
		u = &identityUsage{}
		l.identities[identity] = u
	}
	return u
}

func (l *Ledger) today() string {
	return l.now().UTC().Format("2006-01-02")
}

// Admit checks the identity's daily limit and, when allowed, consumes one
// request slot. Check and increment happen under the identity's lock, so two
// concurrent requests for the same identity can never both pass when one
// slot remains. Day rollover resets the counters before the limit is
// evaluated.
func (l *Ledger) Admit(identity string) Decision {
	u := l.lookup(identity)

	u.mu.Lock()
	defer u.mu.Unlock()

	today := l.today()
	if u.record.Date != today {
		u.record = UsageRecord{Date: today}
	}

	if u.record.Requests >= l.dailyLimit {
		return Decision{Allowed: false, Message: apologyMessage}
	}
	u.record.Requests++
	return Decision{
		Allowed:   true,
		Remaining: l.dailyLimit - u.record.Requests,
	}
}

// Record books the token cost of an admitted, successfully answered turn.
// Denied turns are never recorded; a failed upstream call consumed no tokens,
// so nothing is booked for it either (its admission slot stays spent — the
// conservative side of keeping Admit atomic).
func (l *Ledger) Record(identity string, inputTokens, outputTokens int) {
	u := l.lookup(identity)

	u.mu.Lock()
	defer u.mu.Unlock()

	today := l.today()
	if u.record.Date != today {
		u.record = UsageRecord{Date: today}
	}
	u.record.InputTokens += inputTokens
	u.record.OutputTokens += outputTokens
}

// Usage returns a copy of the identity's current record.
func (l *Ledger) Usage(identity string) UsageRecord {
	u := l.lookup(identity)

	u.mu.Lock()
	defer u.mu.Unlock()
	return u.record
}
