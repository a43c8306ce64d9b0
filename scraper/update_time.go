// scraper/update_time.go
package scraper

import (
	"bufio"
	"bytes"
	"fmt"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/opencovid/api/models"
)

// UpdateTimeFile is the version marker at the root of the time-series repository.
const UpdateTimeFile = "update_time.txt"

// ReadUpdateTime reads the repository version from the first line of update_time.txt,
// e.g. "2023-06-01 14:30 EDT".
func ReadUpdateTime(fs billy.Filesystem) (models.Version, error) {
	data, err := util.ReadFile(fs, UpdateTimeFile)
	if err != nil {
		return models.Version{}, fmt.Errorf("%w: failed to read %s: %w", ErrFetch, UpdateTimeFile, err)
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	if !sc.Scan() {
		return models.Version{}, fmt.Errorf("%w: %s is empty", ErrParse, UpdateTimeFile)
	}
	v := models.NewVersion(sc.Text())
	if v.Token == "" {
		return models.Version{}, fmt.Errorf("%w: %s has a blank first line", ErrParse, UpdateTimeFile)
	}
	if !v.Date.IsValid() {
		return models.Version{}, fmt.Errorf("%w: %s does not start with a date: %q", ErrParse, UpdateTimeFile, v.Token)
	}
	return v, nil
}
