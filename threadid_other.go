//go:build !linux && !windows

package planbridge

// threadID has no portable source on these platforms; every thread shares
// one slot.
func threadID() int64 {
	return 0
}
