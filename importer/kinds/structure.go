package kinds

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KingdomFirst/Bulldozer-sub001/importer/db"
	"github.com/KingdomFirst/Bulldozer-sub001/importer/stream"
	"github.com/jackc/pgtype"
)

var Category = &Kind{
	Name:      "category",
	KeyColumn: "CategoryId",
	Spec: &db.TableSpec{
		Table: "categories",
		Columns: []db.Column{
			column("name", pgtype.TextOID),
			column("description", pgtype.TextOID),
			column("entity_type", pgtype.TextOID),
			column("parent_category_id", pgtype.Int8OID),
		},
	},
	ParentColumn: "parent_category_id",
	ParentSource: "ParentCategoryId",
	Requires:     []string{"category"},
	Transform: func(tc *Context, g *stream.Group) (*db.Entity, error) {
		rec := g.First()
		f := newFields(rec, g.NaturalID)
		parent, deferred := tc.Parent("category", "ParentCategoryId", rec)
		e, err := build(f, db.Row{
			"name":               f.requiredText("CategoryName"),
			"description":        f.text("Description"),
			"entity_type":        f.requiredText("EntityType"),
			"parent_category_id": parent,
		})
		if err != nil {
			return nil, err
		}
		e.ParentKey = deferred
		return e, nil
	},
}

// Location rows are grouped by LocationId. The first row carries the address, every row
// with coordinates adds a vertex: one vertex is a point, three or more a geofence.
var Location = &Kind{
	Name:      "location",
	KeyColumn: "LocationId",
	Grouped:   true,
	Spec: &db.TableSpec{
		Table: "locations",
		Columns: []db.Column{
			column("name", pgtype.TextOID),
			column("location_type", pgtype.TextOID),
			column("street1", pgtype.TextOID),
			column("street2", pgtype.TextOID),
			column("city", pgtype.TextOID),
			column("state", pgtype.TextOID),
			column("postal_code", pgtype.TextOID),
			column("country", pgtype.TextOID),
			column("geo_point", pgtype.TextOID),
			column("geo_fence", pgtype.TextOID),
			column("parent_location_id", pgtype.Int8OID),
		},
	},
	ParentColumn: "parent_location_id",
	ParentSource: "ParentLocationId",
	Requires:     []string{"location"},
	Transform: func(tc *Context, g *stream.Group) (*db.Entity, error) {
		first := g.First()
		f := newFields(first, g.NaturalID)
		parent, deferred := tc.Parent("location", "ParentLocationId", first)
		vertices, err := coordinates(g)
		if err != nil {
			return nil, err
		}
		var point, fence interface{}
		switch {
		case len(vertices) == 1:
			point = fmt.Sprintf("POINT(%s)", vertices[0])
		case len(vertices) >= 3:
			// close the ring
			ring := append(vertices, vertices[0])
			fence = fmt.Sprintf("POLYGON((%s))", strings.Join(ring, ", "))
		case len(vertices) == 2:
			return nil, db.InvalidValue("Latitude", g.NaturalID)
		}
		e, err := build(f, db.Row{
			"name":               f.text("LocationName"),
			"location_type":      f.text("LocationType"),
			"street1":            f.text("Street1"),
			"street2":            f.text("Street2"),
			"city":               f.text("City"),
			"state":              f.text("State"),
			"postal_code":        f.text("PostalCode"),
			"country":            orDefault(f.text("Country"), "US"),
			"geo_point":          point,
			"geo_fence":          fence,
			"parent_location_id": parent,
		})
		if err != nil {
			return nil, err
		}
		e.ParentKey = deferred
		return e, nil
	},
}

// coordinates returns "lon lat" pairs for each row that has both coordinates
func coordinates(g *stream.Group) ([]string, error) {
	var out []string
	for _, rec := range g.Records {
		latText, lonText := rec.Get("Latitude"), rec.Get("Longitude")
		if latText == "" && lonText == "" {
			continue
		}
		lat, err := strconv.ParseFloat(latText, 64)
		if err != nil || lat < -90 || lat > 90 {
			return nil, db.InvalidValue("Latitude", g.NaturalID)
		}
		lon, err := strconv.ParseFloat(lonText, 64)
		if err != nil || lon < -180 || lon > 180 {
			return nil, db.InvalidValue("Longitude", g.NaturalID)
		}
		out = append(out, strconv.FormatFloat(lon, 'f', -1, 64)+" "+strconv.FormatFloat(lat, 'f', -1, 64))
	}
	return out, nil
}

var daysOfWeek = map[string]string{
	"sunday": "Sunday", "sun": "Sunday", "0": "Sunday",
	"monday": "Monday", "mon": "Monday", "1": "Monday",
	"tuesday": "Tuesday", "tue": "Tuesday", "2": "Tuesday",
	"wednesday": "Wednesday", "wed": "Wednesday", "3": "Wednesday",
	"thursday": "Thursday", "thu": "Thursday", "4": "Thursday",
	"friday": "Friday", "fri": "Friday", "5": "Friday",
	"saturday": "Saturday", "sat": "Saturday", "6": "Saturday",
}

var Schedule = &Kind{
	Name:      "schedule",
	KeyColumn: "ScheduleId",
	Spec: &db.TableSpec{
		Table: "schedules",
		Columns: []db.Column{
			column("name", pgtype.TextOID),
			column("description", pgtype.TextOID),
			column("weekly_day_of_week", pgtype.TextOID),
			column("weekly_time_of_day", pgtype.TextOID),
			column("is_active", pgtype.BoolOID),
			column("category_id", pgtype.Int8OID),
		},
	},
	Requires: []string{"category"},
	Transform: func(tc *Context, g *stream.Group) (*db.Entity, error) {
		rec := g.First()
		f := newFields(rec, g.NaturalID)
		return build(f, db.Row{
			"name":               f.requiredText("ScheduleName"),
			"description":        f.text("Description"),
			"weekly_day_of_week": f.enum("DayOfWeek", daysOfWeek, nil),
			"weekly_time_of_day": f.timeOfDay("TimeOfDay"),
			"is_active":          orDefault(f.boolean("IsActive"), true),
			"category_id":        tc.OptionalID("category", "CategoryId", rec),
		})
	},
}
