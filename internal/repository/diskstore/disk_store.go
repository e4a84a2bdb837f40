// Package diskstore addresses the disks of a striped set as local files.
//
// A source file "dir/name" split over N disks produces "dir/name_0" up to
// "dir/name_{N-1}". Merging writes the restored copy to "dir/res__name".
package diskstore

import (
	"fmt"
	"path/filepath"
)

// RestoredPrefix is prepended to the base name of a restored file.
const RestoredPrefix = "res__"

// DiskPath returns the file name of disk index for source.
func DiskPath(source string, index int) string {
	return fmt.Sprintf("%s_%d", source, index)
}

// RestoredPath returns where merge writes the reassembled source.
func RestoredPath(source string) string {
	return filepath.Join(filepath.Dir(source), RestoredPrefix+filepath.Base(source))
}
