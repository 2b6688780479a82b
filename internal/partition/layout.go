package partition

import "path/filepath"

const (
	yearDirName  = "data_by_year"
	weekDirName  = "data_by_week"
	splitDirName = "date_and_data"

	// DateFile holds the date components of the column split.
	DateFile = "X.csv"
	// DataFile holds the measurement fields of the column split.
	DataFile = "Y.csv"
)

// Layout names the on-disk directories holding partitions below Root.
type Layout struct {
	Root string
}

func (l Layout) YearDir() string {
	return filepath.Join(l.Root, yearDirName)
}

func (l Layout) WeekDir() string {
	return filepath.Join(l.Root, weekDirName)
}

func (l Layout) SplitDir() string {
	return filepath.Join(l.Root, splitDirName)
}

func (l Layout) DatePath() string {
	return filepath.Join(l.SplitDir(), DateFile)
}

func (l Layout) DataPath() string {
	return filepath.Join(l.SplitDir(), DataFile)
}
