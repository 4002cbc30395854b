package usage

// PolicyReader provides read-only access to the process-wide usage policy.
type PolicyReader interface {
	FreeLimit() int
}
