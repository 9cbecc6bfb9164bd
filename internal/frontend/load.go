package frontend

import (
	"fmt"
	"os"
	"strings"

	"github.com/derekxu16/dishsoap/internal/common"
	"github.com/derekxu16/dishsoap/internal/ir"
)

// Load reads and parses a source file.
func Load(filename string) (*ir.SourceFile[ir.Untyped], error) {
	if !strings.HasSuffix(filename, common.FileExtension) {
		return nil, fmt.Errorf("%s does not have file extension %s", filename, common.FileExtension)
	}

	if stat, err := os.Stat(filename); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to find file '%s'", filename)
		}
		return nil, err
	} else if stat.IsDir() {
		return nil, fmt.Errorf("'%s' is a directory", filename)
	}

	buf, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseFile(filename, buf)
}
