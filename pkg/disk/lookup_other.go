//go:build !unix

package disk

func lookupUser(string) (int, bool) {
	return 0, false
}

func lookupGroup(string) (int, bool) {
	return 0, false
}
