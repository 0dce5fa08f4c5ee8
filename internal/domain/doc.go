// Package domain models daily weather observations and the station metadata
// they reference.
//
// # Observation files
//
// One file per year, one observation per line, eight comma-separated fields
// and no header:
//
//	station_id,date,measurement_kind,degrees_celsius,m_flag,q_flag,s_flag,time
//	KXYZ,2000-01-01,TMIN,-5,,,,0000
//
// The measurement kind is a short code such as "TMIN" (daily minimum) or
// "TMAX" (daily maximum). The value column is taken literally as an integer;
// no unit scaling is applied. The quality flag is empty when the reading has
// no known quality problem. Any other value marks the reading as suspect and
// it is excluded from every statistic (see [PassesQuality]).
//
// # Station file
//
// The IEM network listing, seven comma-separated fields:
//
//	stid,station_name,lat,lon,elev,begints,iem_network
//
// All station fields are kept as strings. Latitude and longitude are only
// forwarded to the geocoder, never used in arithmetic.
//
// # Joins
//
// Observations reference stations by identifier. Identifiers are expected to
// be unique but this is not guaranteed by the source listing, so the
// [StationIndex] keeps every record for an identifier and a join emits one
// row per matching pair.
//
// Neither file format supports quoting: a comma inside a field shifts the
// column count and the line is rejected by the parser.
package domain
