package extractor

import (
	"strings"
)

func includePaths(includes []string) []string {
	var pathsInArchive []string
	for _, inc := range includes {
		inc = strings.TrimPrefix(inc, "/")
		if len(inc) > 0 {
			pathsInArchive = append(pathsInArchive, inc)
		}
	}
	return pathsInArchive
}

func fileIsIncluded(filenameList []string, filename string) bool {
	// include all files if there is no specific list
	if len(filenameList) == 0 {
		return true
	}
	filename = strings.TrimPrefix(filename, "./")
	for _, fn := range filenameList {
		// exact matches are of course included
		if filename == fn || strings.TrimSuffix(filename, "/") == strings.TrimSuffix(fn, "/") {
			return true
		}
		// also consider the file included if its parent folder/path is in the list
		if strings.HasPrefix(filename, strings.TrimSuffix(fn, "/")+"/") {
			return true
		}
	}
	return false
}
