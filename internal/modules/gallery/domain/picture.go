package domain

// Picture is one gallery entry chosen for posting.
type Picture struct {
	Caption  string
	URL      string
	Filename string
	Data     []byte
}
