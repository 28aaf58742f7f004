// Package gpx writes GPX 1.1 tracks from route bundles. The upstream export
// endpoint is the primary source; this writer is the fallback when it is
// unavailable, so exports keep working off the cached bundle.
package gpx

import (
	"encoding/xml"
	"fmt"
	"time"

	"mrtrack/internal/model"
)

type gpxDoc struct {
	XMLName xml.Name `xml:"gpx"`
	Version string   `xml:"version,attr"`
	Creator string   `xml:"creator,attr"`
	XMLNS   string   `xml:"xmlns,attr"`
	Meta    metadata `xml:"metadata"`
	Track   track    `xml:"trk"`
}

type metadata struct {
	Name string `xml:"name"`
	Time string `xml:"time,omitempty"`
}

type track struct {
	Name    string  `xml:"name"`
	Segment segment `xml:"trkseg"`
}

type segment struct {
	Points []trkpt `xml:"trkpt"`
}

type trkpt struct {
	Lat  float64 `xml:"lat,attr"`
	Lon  float64 `xml:"lon,attr"`
	Time string  `xml:"time,omitempty"`
	Name string  `xml:"name,omitempty"`
}

// Write renders a bundle as a GPX track named after the MR and date.
func Write(bundle model.RouteBundle, mrName, mrID, date string) ([]byte, error) {
	name := mrName
	if name == "" {
		name = mrID
	}
	doc := gpxDoc{
		Version: "1.1",
		Creator: "mrtrack",
		XMLNS:   "http://www.topografix.com/GPX/1/1",
		Meta:    metadata{Name: fmt.Sprintf("%s %s", name, date)},
		Track:   track{Name: fmt.Sprintf("Route %s", date)},
	}
	if !bundle.FetchedAt.IsZero() {
		doc.Meta.Time = bundle.FetchedAt.UTC().Format(time.RFC3339)
	}
	for _, p := range bundle.Points {
		doc.Track.Segment.Points = append(doc.Track.Segment.Points, trkpt{
			Lat:  p.Latitude,
			Lon:  p.Longitude,
			Time: p.Timestamp.UTC().Format(time.RFC3339),
			Name: p.LocationName,
		})
	}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

// Filename is the download name contract: mr-route-<id>-<date>.gpx.
func Filename(mrID, date string) string {
	return fmt.Sprintf("mr-route-%s-%s.gpx", mrID, date)
}
