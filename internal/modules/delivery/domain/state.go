//go:generate go run github.com/abice/go-enum --file=$GOFILE --names --nocase

package domain

// LoopState is the phase the delivery loop is in.
// ENUM(idle,awaiting_ready,fetching_news,delivering_news,checking_status,sleeping)
type LoopState string
