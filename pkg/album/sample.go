package album

// Sample is the built-in album. It has no files behind it and is meant to be paired with decode.Swatches.
type Sample struct{}

type sampleRow struct {
	name, camera, exposure, aperture, focal, iso string
	lat, lon                                     int32
}

var sampleRows = []sampleRow{
	{"Antelope Lights", "Canon 5D Mk II", "1.3", "10", "32", "320", 36879466, -111389393},
	{"The Photographer", "Canon 5D Mk II", "1/60", "3.5", "70", "800", 36878891, -111510672},
	{"Green Grass", "Canon 5D Mk II", "1/100", "3.2", "100", "1600", 37785372, -122402876},
	{"Electric Storm", "Canon 5D Mk II", "1/125", "2.8", "65", "3200", 35660992, 139700131},
	{"Electric Storm", "Canon 5D Mk II", "1/40", "2.8", "45", "2000", 35011228, 135765094},
	{"Fog Valley", "Canon 5D Mk II", "1/250", "8", "17", "200", 3663206, -118821945},
	{"Antelope Hallway", "Canon 5D Mk II", "2", "11", "22", "400", 36862609, -111374437},
	{"Green Highway", "Canon 5D Mk II", "1/800", "4", "70", "1250", 19809906, -155094637},
	{"Windmill Sunrise", "Canon 5D Mk II", "1/200", "8", "200", "1000", 37719218, -121657233},
	{"Sunset Hills", "Canon 5D Mk II", "1/100", "4", "98", "2000", 37322683, -122210696},
}

// LoadAll returns the ten sample photos with image ids 1 through 10.
func (Sample) LoadAll() ([]*Photo, error) {
	ps := make([]*Photo, 0, len(sampleRows))
	for i, r := range sampleRows {
		id := ImageID(i + 1)
		ps = append(ps, &Photo{
			Image:     id,
			Thumb:     id.Thumb(),
			Name:      r.name,
			Camera:    r.camera,
			Exposure:  r.exposure,
			Aperture:  r.aperture,
			Focal:     r.focal,
			ISO:       r.iso,
			Latitude:  r.lat,
			Longitude: r.lon,
		})
	}
	return ps, nil
}
