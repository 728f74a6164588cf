package handler

import (
	"github.com/bounceheads/directory/internal/entity"
	"github.com/bounceheads/directory/internal/photo"
	"github.com/bounceheads/directory/internal/service"
)

// parkView is a park as rendered by the API: images point at the proxies.
type parkView struct {
	entity.Park
	Images []string `json:"images"`
}

type nearbyView struct {
	parkView
	DistanceKm float64 `json:"distanceKm"`
}

func newParkView(park entity.Park) parkView {
	return parkView{Park: park, Images: photo.ProxyURLs(park.Images)}
}

func newParkViews(parks []entity.Park) []parkView {
	out := make([]parkView, len(parks))
	for i, park := range parks {
		out[i] = newParkView(park)
	}
	return out
}

func newNearbyViews(parks []service.NearbyPark) []nearbyView {
	out := make([]nearbyView, len(parks))
	for i, p := range parks {
		out[i] = nearbyView{parkView: newParkView(p.Park), DistanceKm: p.DistanceKm}
	}
	return out
}
