package cache

import (
	"fmt"
	"strings"
	"time"
)

// Namespace identifies a family of cache keys that share a value type and
// a TTL.
type Namespace string

// Redis key patterns:
// live_streams                                             JSON []Stream
// stream:{stream_id}                                       JSON Stream (streamer + successful payments)
// user:{user_id}                                           JSON User (owned stream summaries)
// user:email:{email}                                       JSON User
// payment_details:{payment_id}                             JSON Payment
// user_sent_payments:{user_id}:{status|all}:{page}         JSON PaymentPage
// streamer_received_payments:{user_id}:{status|all}:{page} JSON PaymentPage
// stream_payment_stats:{stream_id}                         JSON StreamPaymentStats
// stream_donations:{stream_id}                             FLOAT running total
// rate_limit:{action}:{user_id}                            INT  window counter
const (
	NSLiveStreams      Namespace = "live_streams"
	NSStream           Namespace = "stream"
	NSUser             Namespace = "user"
	NSUserEmail        Namespace = "user:email"
	NSPayment          Namespace = "payment_details"
	NSSentPayments     Namespace = "user_sent_payments"
	NSReceivedPayments Namespace = "streamer_received_payments"
	NSStreamStats      Namespace = "stream_payment_stats"
	NSDonations        Namespace = "stream_donations"
	NSRateLimit        Namespace = "rate_limit"
)

// StatusAll is the status segment of a page key when no filter applies.
const StatusAll = "all"

// DonationTTL is how long a donation counter lives after its last increment.
const DonationTTL = 24 * time.Hour

// TTLs holds the expiry of every JSON namespace.
type TTLs struct {
	LiveStreams   time.Duration `mapstructure:"live_streams"`
	StreamDetail  time.Duration `mapstructure:"stream_details"`
	UserProfile   time.Duration `mapstructure:"user_profile"`
	PaymentDetail time.Duration `mapstructure:"payment_details"`
	PaymentPages  time.Duration `mapstructure:"payment_pages"`
	PaymentStats  time.Duration `mapstructure:"payment_stats"`
}

// DefaultTTLs returns the production TTL table.
func DefaultTTLs() TTLs {
	return TTLs{
		LiveStreams:   30 * time.Second,
		StreamDetail:  5 * time.Minute,
		UserProfile:   10 * time.Minute,
		PaymentDetail: 5 * time.Minute,
		PaymentPages:  3 * time.Minute,
		PaymentStats:  time.Minute,
	}
}

// withDefaults fills zero entries from DefaultTTLs.
func (t TTLs) withDefaults() TTLs {
	d := DefaultTTLs()
	if t.LiveStreams <= 0 {
		t.LiveStreams = d.LiveStreams
	}
	if t.StreamDetail <= 0 {
		t.StreamDetail = d.StreamDetail
	}
	if t.UserProfile <= 0 {
		t.UserProfile = d.UserProfile
	}
	if t.PaymentDetail <= 0 {
		t.PaymentDetail = d.PaymentDetail
	}
	if t.PaymentPages <= 0 {
		t.PaymentPages = d.PaymentPages
	}
	if t.PaymentStats <= 0 {
		t.PaymentStats = d.PaymentStats
	}
	return t
}

func (t TTLs) forNamespace(ns Namespace) time.Duration {
	switch ns {
	case NSLiveStreams:
		return t.LiveStreams
	case NSStream:
		return t.StreamDetail
	case NSUser, NSUserEmail:
		return t.UserProfile
	case NSPayment:
		return t.PaymentDetail
	case NSSentPayments, NSReceivedPayments:
		return t.PaymentPages
	case NSStreamStats:
		return t.PaymentStats
	case NSDonations:
		return DonationTTL
	}
	return 0
}

func entityKey(ns Namespace, id string) string {
	return fmt.Sprintf("%s:%s", ns, id)
}

func liveStreamsKey() string {
	return string(NSLiveStreams)
}

func pageKey(ns Namespace, ownerID, status string, page int) string {
	return fmt.Sprintf("%s:%s:%s:%d", ns, ownerID, normalizeStatus(status), page)
}

// pagePattern matches every page of one owner in ns.
func pagePattern(ns Namespace, ownerID string) string {
	return fmt.Sprintf("%s:%s:*", ns, escapeGlob(ownerID))
}

func rateLimitKey(action, userID string) string {
	return fmt.Sprintf("%s:%s:%s", NSRateLimit, action, userID)
}

func normalizeStatus(status string) string {
	if status == "" {
		return StatusAll
	}
	return status
}

var globEscaper = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`?`, `\?`,
	`[`, `\[`,
	`]`, `\]`,
)

// escapeGlob quotes Redis MATCH metacharacters so an id only ever matches
// itself.
func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}
