package domain

import "time"

// ArchiveRecord is the frozen canvas of a closed epoch. It is written once,
// at rollover, before the canvas is cleared.
type ArchiveRecord struct {
	EpochNumber  int64     `json:"epoch_number"`
	Cells        []Cell    `json:"cells"`
	Contributors []string  `json:"contributors,omitempty"`
	ClosedAt     time.Time `json:"closed_at"`
}

// ArchiveSummary is the catalogue view of an archive record.
type ArchiveSummary struct {
	EpochNumber  int64     `json:"epoch_number"`
	CellCount    int       `json:"cell_count"`
	Contributors int       `json:"contributors"`
	ClosedAt     time.Time `json:"closed_at"`
}

// Summary returns the catalogue view of r.
func (r *ArchiveRecord) Summary() ArchiveSummary {
	return ArchiveSummary{
		EpochNumber:  r.EpochNumber,
		CellCount:    len(r.Cells),
		Contributors: len(r.Contributors),
		ClosedAt:     r.ClosedAt,
	}
}
