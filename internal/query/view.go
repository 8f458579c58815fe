package query

import "subway-map/internal/subway"

// JSON shapes shared by the HTTP and NATS surfaces.

type StationView struct {
	Name  string   `json:"name"`
	Lines []string `json:"lines"`
}

type TransfersResponse struct {
	Stations []StationView `json:"stations"`
	Count    int           `json:"count"`
}

type NeighborView struct {
	Name       string  `json:"name"`
	DistanceKm float64 `json:"distanceKm"`
}

type NearbyRequest struct {
	Station       string  `json:"station"`
	MaxDistanceKm float64 `json:"maxDistanceKm"`
}

type NearbyResponse struct {
	Station       string         `json:"station"`
	MaxDistanceKm float64        `json:"maxDistanceKm"`
	Nearby        []NeighborView `json:"nearby"`
}

type PathsRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type PathsResponse struct {
	From  string     `json:"from"`
	To    string     `json:"to"`
	Paths [][]string `json:"paths"`
	Count int        `json:"count"`
}

type NetworkSummary struct {
	Stations         int    `json:"stations"`
	Segments         int    `json:"segments"`
	Lines            int    `json:"lines"`
	TransferStations int    `json:"transferStations"`
	Fingerprint      string `json:"fingerprint"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func NewTransfersResponse(stations []subway.Station) TransfersResponse {
	resp := TransfersResponse{Stations: make([]StationView, 0, len(stations)), Count: len(stations)}
	for _, st := range stations {
		resp.Stations = append(resp.Stations, StationView{Name: st.Name, Lines: st.LineIDs()})
	}
	return resp
}

func NewNearbyResponse(station string, maxKm float64, found []Neighbor) NearbyResponse {
	resp := NearbyResponse{Station: station, MaxDistanceKm: maxKm, Nearby: make([]NeighborView, 0, len(found))}
	for _, n := range found {
		resp.Nearby = append(resp.Nearby, NeighborView{Name: n.Name, DistanceKm: n.DistanceKm})
	}
	return resp
}

func NewPathsResponse(from, to string, paths [][]string) PathsResponse {
	if paths == nil {
		paths = [][]string{}
	}
	return PathsResponse{From: from, To: to, Paths: paths, Count: len(paths)}
}

func Summarize(net *subway.Network) NetworkSummary {
	return NetworkSummary{
		Stations:         net.StationCount(),
		Segments:         net.SegmentCount(),
		Lines:            len(net.Lines()),
		TransferStations: len(net.TransferStations()),
		Fingerprint:      net.Fingerprint(),
	}
}

func NewErrorResponse(err error) ErrorResponse {
	return ErrorResponse{Error: err.Error(), Code: Outcome(err)}
}
