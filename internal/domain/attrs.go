package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// FormatL2 standardizes a retrieved Level-2P dataset in place: per-variable
// attributes from the product configuration, CF coordinate names and
// attributes, and the full ESA CCI Sea State global attribute set. It returns
// the track ID assigned to the product.
func FormatL2(ds *Dataset, name ProductName, varAttrs map[string]map[string]any) (string, error) {
	for v, attrs := range varAttrs {
		vr := ds.Var(v)
		if vr == nil {
			return "", fmt.Errorf("attributes configured for missing variable %q", v)
		}
		vr.Attrs = make(map[string]any, len(attrs))
		for k, a := range attrs {
			vr.Attrs[k] = a
		}
	}

	// Upstream Level-1 readers still emit the long coordinate names.
	if ds.Has("longitude") {
		ds.Rename("longitude", "lon")
	}
	if ds.Has("latitude") {
		ds.Rename("latitude", "lat")
	}

	if lon := ds.Var("lon"); lon != nil {
		lon.Attrs = map[string]any{
			"units":         "degrees_east",
			"long_name":     "longitude",
			"standard_name": "longitude",
		}
	}
	if lat := ds.Var("lat"); lat != nil {
		lat.Attrs = map[string]any{
			"units":         "degrees_north",
			"long_name":     "latitude",
			"standard_name": "latitude",
		}
	}
	if pol := ds.Var("pol"); pol != nil {
		pol.Attrs = map[string]any{"long_name": "polarization"}
	}

	trackID := uuid.New().String()
	ds.Attrs = GlobalAttributes(name, trackID, ds.Attrs)
	return trackID, nil
}

// GlobalAttributes assembles the ESA CCI Sea State L2P global attribute set
// for a product. Time coverage carries over from the Level-1 attributes;
// creation date comes from the injected clock.
func GlobalAttributes(name ProductName, trackID string, l1Attrs map[string]any) map[string]any {
	creation := clock.Now().UTC().Format("2006-01-02T15:04:05.000000")

	attrs := map[string]any{
		"title":                         "ESA CCI Sea State L2P from ASAR onboard Envisat wave mode (WV).",
		"id":                            "ESACCI-SEASTATE-L2P-ASAR-SWH-ENVISAT-v1",
		"summary":                       "This dataset contains estimates of significant wave height, windsea significant wave height and mean wave period data derived from Level 1 ASAR measurements.",
		"platform":                      "Envisat",
		"instrument":                    "ASAR",
		"band":                          "C",
		"spatial_resolution":            "5x10km",
		"creation_date":                 creation,
		"history":                       creation + " - Creation",
		"track_id":                      trackID,
		"geospatial_lat_min":            -80.0,
		"geospatial_lat_max":            80.0,
		"geospatial_lon_min":            -180.0,
		"geospatial_lon_max":            180.0,
		"cycle":                         int32(name.Cycle),
		"relative_pass_number":          int32(name.RelativePass),
		"cdm_data_type":                 "trajectory",
		"featureType":                   "trajectory",
		"naming_authority":              "cersat.ifremer.fr",
		"keywords":                      "Oceans > Ocean Waves > Significant Wave Height, Oceans > Ocean Waves > Sea State",
		"key_variables":                 "swh, windwave_swh, Tm0",
		"processing_level":              "L2P",
		"comment":                       "These data were produced at Ifremer as part of the ESA ST CCI project",
		"platform_type":                 "low earth orbit satellite",
		"instrument_type":               "synthetic aperture radar (sar)",
		"Conventions":                   "CF-1.11, ACDD-1.3, ISO 8601",
		"standard_name_vocabulary":      "Climate and Forecast (CF) Standard Name Table v79",
		"Metadata_Conventions":          "Climate and Forecast (CF) 1.7, Attribute Convention for Data Discovery (ACDD) 1.3",
		"keywords_vocabulary":           "NASA Global Change Master Directory (GCMD) Science Keywords",
		"format_version":                "Data Standards v2.1",
		"platform_vocabulary":           "CEOS mission table",
		"instrument_vocabulary":         "CEOS instrument table",
		"institution":                   "Institut Francais de Recherche pour l'Exploitation de la mer / Centre d'Exploitation et de Recherche Satellitaire, European Space Agency",
		"institution_abbreviation":      "Ifremer / CERSAT, ESA",
		"project":                       "Climate Change Initiative - Sea State (CCI SeaState)",
		"program":                       "Climate Change Initiative - European Space Agency",
		"license":                       "ESA CCI Data Policy - free and open access",
		"acknowledgment":                "Please acknowledge the use of these data with the following statement: these data were obtained from the ESA CCI Sea State project",
		"publisher_name":                "Ifremer / CERSAT",
		"publisher_url":                 "http://cersat.ifremer.fr",
		"publisher_email":               "cersat@ifremer.fr",
		"publisher_institution":         "Ifremer",
		"publisher_type":                "institution",
		"creator_name":                  "CERSAT",
		"creator_url":                   "http://cersat.ifremer.fr",
		"creator_email":                 "cersat@ifremer.fr",
		"creator_type":                  "institution",
		"creator_institution":           "Ifremer",
		"contributor_name":              "Jean-Francois Piolle",
		"contributor_role":              "principal investigator",
		"references":                    "?",
		"contact":                       "jfpiolle@ifremer.fr",
		"technical_support_contact":     "cersat@ifremer.fr",
		"scientific_support_contact":    "frederic.nouguier@ifremer.fr",
		"processing_software":           "Ifremer ASAR Level-2 seastate processor",
		"product_version":               "1.0",
		"source":                        "CCI Sea State 1 L2P ASAR Processor",
		"source_version":                "1.0",
		"geospatial_bounds":             "POLYGON ((-180.0 -80.0, 180.0 -80.0, 180.0 80.0, -180.0 80.0, -180.0 -80.0))",
		"geospatial_bounds_crs":         "EPSG:4326",
		"geospatial_bounds_vertical_crs": "EPSG:5831",
		"geospatial_lat_units":          "degrees_north",
		"geospatial_lon_units":          "degrees_east",
		"geospatial_vertical_min":       0.0,
		"geospatial_vertical_max":       0.0,
	}

	for _, k := range []string{"time_coverage_start", "time_coverage_end"} {
		if v, ok := l1Attrs[k]; ok {
			attrs[k] = v
		}
	}
	return attrs
}
