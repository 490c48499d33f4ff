package tutor

import (
	"errors"
	"time"
)

// ErrVideoNotFound is returned when a request names a video id that is not
// in the catalog.
var ErrVideoNotFound = errors.New("video not found")

// Service answers the assistant's catalog queries over one immutable Catalog.
// It holds no mutable state and is safe for concurrent use.
type Service struct {
	catalog *Catalog
	doc     *Document
}

// NewService returns a Service over catalog. A nil catalog behaves as empty.
func NewService(catalog *Catalog) *Service {
	if catalog == nil {
		catalog = NewCatalog(nil)
	}
	return &Service{catalog: catalog}
}

// NewServiceFromDocument builds the catalog from an ingestion document and
// keeps the document so it can be served back unchanged.
func NewServiceFromDocument(doc *Document, subtitles SubtitleResolver) *Service {
	return &Service{catalog: CatalogFromDocument(doc, subtitles), doc: doc}
}

// Catalog returns the catalog the service was built with.
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// Document returns the catalog in ingestion document form. When the service
// was not built from a document, one is derived from the catalog.
func (s *Service) Document() *Document {
	if s.doc != nil {
		return s.doc
	}
	videos := s.catalog.Videos()
	doc := &Document{
		Videos:   make([]Record, 0, len(videos)),
		Metadata: Metadata{TotalVideos: len(videos), LastUpdated: Timestamp(time.Now())},
	}
	for _, v := range videos {
		doc.Videos = append(doc.Videos, recordFromVideo(v))
	}
	return doc
}

// SearchVideos ranks the catalog against query; see Search.
func (s *Service) SearchVideos(query string) []SearchResult {
	return Search(s.catalog, query)
}

// Video looks up a video by id.
func (s *Service) Video(id VideoID) (Video, error) {
	v, ok := s.catalog.Video(id)
	if !ok {
		return Video{}, ErrVideoNotFound
	}
	return v, nil
}

// VideoContentAt returns the transcript window of video id at timestamp.
// Negative timestamps are treated as 0.
func (s *Service) VideoContentAt(id VideoID, timestamp int) (Window, error) {
	v, err := s.Video(id)
	if err != nil {
		return Window{}, err
	}
	if timestamp < 0 {
		timestamp = 0
	}
	return WindowAt(v, timestamp), nil
}

func recordFromVideo(v Video) Record {
	r := Record{
		ID:                string(v.ID),
		Title:             v.Title,
		Description:       v.Description,
		URL:               v.URL,
		Duration:          v.DurationSeconds,
		DurationFormatted: v.DurationFormatted,
		Topics:            v.Topics,
		Keywords:          v.Keywords,
		Transcript:        make([]RecordSegment, 0, len(v.Transcript)),
	}
	for _, seg := range v.Transcript {
		r.Transcript = append(r.Transcript, RecordSegment{
			Text:  seg.Text,
			Start: float64(seg.Start),
			End:   float64(seg.End),
		})
	}
	return r
}
