// Package domain models NASA EONET natural-event data and the flattening of
// raw events into fixed-width report rows.
//
// # Data Source
//
// Events come from the Earth Observatory Natural Event Tracker (EONET) v2.1
// API, one request per category:
//
//	GET https://eonet.gsfc.nasa.gov/api/v2.1/categories/{id}?status=closed&days=60
//
// The report covers three categories: 8 (Wildfires), 10 (Severe Storms) and
// 14 (Landslides). Each response is an object whose "events" array holds the
// nested event records.
//
// # Event Shape
//
//	{
//	  "id": "EONET_2917",
//	  "title": "Wildfire - Northern California",
//	  "description": "",
//	  "link": "https://eonet.gsfc.nasa.gov/api/v2.1/events/EONET_2917",
//	  "closed": "2017-10-31T00:00:00Z",            // or null while open
//	  "categories": [{"id": 8, "title": "Wildfires"}],
//	  "sources":    [{"id": "InciWeb", "url": "https://inciweb.nwcg.gov/incident/5627/"}],
//	  "geometries": [{"date": "2017-10-09T00:00:00Z", "type": "Point", "coordinates": [-122.6, 38.5]}]
//	}
//
// Coordinates vary by geometry type: a [lon, lat] pair for points, nested
// rings for polygons. Rows always carry them as text, rendered the way the
// historical report did ("[-122.6, 38.5]"), so number literals are kept
// verbatim by decoding with json.Number.
//
// # Row Layout
//
// A [Row] holds exactly twelve fields, in the column order of the eonet_data
// table: event_id, event_title, event_description, event_link, closed,
// category_id, category_title, source_id, source_url, date, geometry_type,
// coordinates. See [Columns].
//
// # Multi-valued Sequences
//
// An event may list several categories, sources and geometries (a storm track
// has one geometry per observation). [FirstOnly] keeps the first element of
// each sequence, matching the historical report. [AllVariants] emits one row
// per category × source × geometry combination.
//
// # Month Filtering
//
// Rows are kept when their geometry date falls in the target month.
// [ExactMonth] compares the YYYY-MM prefix and is the default.
// [SubstringMonth] reproduces the historical substring test, which also
// matches "2017-10" for a target of "2017-1"; use it only to compare output
// against old runs.
package domain
