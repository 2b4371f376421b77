package kinds

import (
	"regexp"

	"github.com/KingdomFirst/Bulldozer-sub001/importer/db"
	"github.com/KingdomFirst/Bulldozer-sub001/importer/stream"
	"github.com/google/uuid"
	"github.com/jackc/pgtype"
)

var Campus = &Kind{
	Name:      "campus",
	KeyColumn: "CampusId",
	Spec: &db.TableSpec{
		Table: "campuses",
		Columns: []db.Column{
			column("name", pgtype.TextOID),
			column("short_code", pgtype.TextOID),
			column("is_active", pgtype.BoolOID),
		},
	},
	Transform: func(_ *Context, g *stream.Group) (*db.Entity, error) {
		f := newFields(g.First(), g.NaturalID)
		return build(f, db.Row{
			"name":       f.requiredText("CampusName"),
			"short_code": f.text("CampusShortCode"),
			"is_active":  orDefault(f.boolean("IsActive"), true),
		})
	},
}

var genders = map[string]string{"m": "Male", "male": "Male", "f": "Female", "female": "Female", "u": "Unknown", "unknown": "Unknown"}

var recordStatuses = map[string]string{"active": "Active", "inactive": "Inactive", "pending": "Pending"}

var Person = &Kind{
	Name:      "person",
	KeyColumn: "PersonId",
	Spec: &db.TableSpec{
		Table: "people",
		Columns: []db.Column{
			column("first_name", pgtype.TextOID),
			column("nick_name", pgtype.TextOID),
			column("last_name", pgtype.TextOID),
			column("email", pgtype.TextOID),
			column("gender", pgtype.TextOID),
			column("birth_date", pgtype.DateOID),
			column("record_status", pgtype.TextOID),
			column("connection_status", pgtype.TextOID),
			column("is_deceased", pgtype.BoolOID),
			column("campus_id", pgtype.Int8OID),
		},
		Alias: &db.ChildSpec{
			Table:        "person_aliases",
			ParentColumn: "person_id",
			Columns:      []db.Column{column("alias_guid", pgtype.TextOID)},
		},
	},
	Requires: []string{"campus"},
	Transform: func(tc *Context, g *stream.Group) (*db.Entity, error) {
		rec := g.First()
		f := newFields(rec, g.NaturalID)
		e, err := build(f, db.Row{
			"first_name":        f.requiredText("FirstName"),
			"nick_name":         f.text("NickName"),
			"last_name":         f.requiredText("LastName"),
			"email":             f.text("Email"),
			"gender":            f.enum("Gender", genders, "Unknown"),
			"birth_date":        f.date("BirthDate"),
			"record_status":     f.enum("RecordStatus", recordStatuses, "Active"),
			"connection_status": f.text("ConnectionStatus"),
			"is_deceased":       orDefault(f.boolean("IsDeceased"), false),
			"campus_id":         tc.OptionalID("campus", "CampusId", rec),
		})
		if err != nil {
			return nil, err
		}
		e.Children = map[string][]db.Row{
			"person_aliases": {{"alias_guid": uuid.NewString()}},
		}
		return e, nil
	},
}

var familyRoles = map[string]string{"a": "Adult", "adult": "Adult", "c": "Child", "child": "Child"}

// Family rows are grouped by FamilyId, one row per member. A member whose person was never
// imported excludes the whole family so it is not created with a partial membership.
var Family = &Kind{
	Name:      "family",
	KeyColumn: "FamilyId",
	Grouped:   true,
	Spec: &db.TableSpec{
		Table: "families",
		Columns: []db.Column{
			column("name", pgtype.TextOID),
			column("campus_id", pgtype.Int8OID),
		},
		Children: []*db.ChildSpec{{
			Table:        "family_members",
			ParentColumn: "family_id",
			Columns: []db.Column{
				column("person_id", pgtype.Int8OID),
				column("role", pgtype.TextOID),
			},
		}},
	},
	Requires: []string{"campus", "person"},
	Transform: func(tc *Context, g *stream.Group) (*db.Entity, error) {
		first := g.First()
		f := newFields(first, g.NaturalID)
		name := f.text("FamilyName")
		if name == nil {
			if last := first.Get("LastName"); last != "" {
				name = last + " Family"
			}
		}
		var campus interface{}
		members := make([]db.Row, 0, len(g.Records))
		seen := make(map[int64]bool)
		for _, rec := range g.Records {
			person, err := tc.Required("person", "PersonId", rec)
			if err != nil {
				return nil, err
			}
			role := newFields(rec, g.NaturalID).enum("FamilyRole", familyRoles, "Adult")
			if role == nil {
				return nil, db.InvalidValue("FamilyRole", g.NaturalID)
			}
			if campus == nil {
				campus = tc.OptionalID("campus", "CampusId", rec)
			}
			if seen[person.ID] {
				continue
			}
			seen[person.ID] = true
			members = append(members, db.Row{"person_id": person.ID, "role": role})
		}
		if name == nil {
			f.fail("FamilyName")
		}
		e, err := build(f, db.Row{"name": name, "campus_id": campus})
		if err != nil {
			return nil, err
		}
		e.Children = map[string][]db.Row{"family_members": members}
		return e, nil
	},
}

var phoneTypes = map[string]string{"home": "Home", "mobile": "Mobile", "cell": "Mobile", "work": "Work"}

var nonDigits = regexp.MustCompile(`\D`)

var Phone = &Kind{
	Name:      "phone",
	KeyColumn: "PhoneId",
	Spec: &db.TableSpec{
		Table: "phone_numbers",
		Columns: []db.Column{
			column("person_id", pgtype.Int8OID),
			column("number", pgtype.TextOID),
			column("extension", pgtype.TextOID),
			column("phone_type", pgtype.TextOID),
			column("is_unlisted", pgtype.BoolOID),
			column("is_messaging_enabled", pgtype.BoolOID),
		},
	},
	Requires: []string{"person"},
	Transform: func(tc *Context, g *stream.Group) (*db.Entity, error) {
		rec := g.First()
		person, err := tc.Required("person", "PersonId", rec)
		if err != nil {
			return nil, err
		}
		f := newFields(rec, g.NaturalID)
		var number interface{}
		if digits := nonDigits.ReplaceAllString(rec.Get("PhoneNumber"), ""); digits != "" {
			number = digits
		} else {
			f.fail("PhoneNumber")
		}
		return build(f, db.Row{
			"person_id":            person.ID,
			"number":               number,
			"extension":            f.text("Extension"),
			"phone_type":           f.enum("PhoneType", phoneTypes, "Home"),
			"is_unlisted":          orDefault(f.boolean("IsUnlisted"), false),
			"is_messaging_enabled": orDefault(f.boolean("IsMessagingEnabled"), false),
		})
	},
}

var Note = &Kind{
	Name:      "note",
	KeyColumn: "NoteId",
	Spec: &db.TableSpec{
		Table: "notes",
		Columns: []db.Column{
			column("person_id", pgtype.Int8OID),
			column("note_type", pgtype.TextOID),
			column("caption", pgtype.TextOID),
			column("text", pgtype.TextOID),
			column("is_alert", pgtype.BoolOID),
			column("is_private", pgtype.BoolOID),
			column("created_date", pgtype.DateOID),
			column("created_by_person_alias_id", pgtype.Int8OID),
		},
	},
	Requires: []string{"person"},
	Transform: func(tc *Context, g *stream.Group) (*db.Entity, error) {
		rec := g.First()
		person, err := tc.Required("person", "PersonId", rec)
		if err != nil {
			return nil, err
		}
		f := newFields(rec, g.NaturalID)
		return build(f, db.Row{
			"person_id":                  person.ID,
			"note_type":                  orDefault(f.text("NoteType"), "Personal Note"),
			"caption":                    f.text("Caption"),
			"text":                       f.requiredText("Text"),
			"is_alert":                   orDefault(f.boolean("IsAlert"), false),
			"is_private":                 orDefault(f.boolean("IsPrivate"), false),
			"created_date":               f.date("DateCreated"),
			"created_by_person_alias_id": tc.OptionalAlias("person", "CreatedByPersonId", rec),
		})
	},
}

var authTypes = map[string]string{"database": "Database", "ad": "ActiveDirectory", "activedirectory": "ActiveDirectory", "pin": "PINAuthentication"}

// UserLogin user names must be unique across the run; the second login claiming a name is skipped
var UserLogin = &Kind{
	Name:      "user_login",
	KeyColumn: "UserLoginId",
	Spec: &db.TableSpec{
		Table: "user_logins",
		Columns: []db.Column{
			column("person_id", pgtype.Int8OID),
			column("user_name", pgtype.TextOID),
			column("password_hash", pgtype.TextOID),
			column("auth_type", pgtype.TextOID),
			column("is_confirmed", pgtype.BoolOID),
		},
	},
	Unique:   []string{"user_name"},
	Requires: []string{"person"},
	Transform: func(tc *Context, g *stream.Group) (*db.Entity, error) {
		rec := g.First()
		person, err := tc.Required("person", "PersonId", rec)
		if err != nil {
			return nil, err
		}
		f := newFields(rec, g.NaturalID)
		return build(f, db.Row{
			"person_id":     person.ID,
			"user_name":     f.requiredText("UserName"),
			"password_hash": f.text("PasswordHash"),
			"auth_type":     f.enum("AuthenticationType", authTypes, "Database"),
			"is_confirmed":  orDefault(f.boolean("IsConfirmed"), true),
		})
	},
}

func orDefault(v interface{}, def interface{}) interface{} {
	if v == nil {
		return def
	}
	return v
}
