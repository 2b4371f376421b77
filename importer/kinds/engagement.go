package kinds

import (
	"github.com/KingdomFirst/Bulldozer-sub001/importer/db"
	"github.com/KingdomFirst/Bulldozer-sub001/importer/stream"
	"github.com/jackc/pgtype"
)

var PrayerRequest = &Kind{
	Name:      "prayer_request",
	KeyColumn: "PrayerRequestId",
	Spec: &db.TableSpec{
		Table: "prayer_requests",
		Columns: []db.Column{
			column("first_name", pgtype.TextOID),
			column("last_name", pgtype.TextOID),
			column("email", pgtype.TextOID),
			column("text", pgtype.TextOID),
			column("answer", pgtype.TextOID),
			column("entered_date", pgtype.DateOID),
			column("is_public", pgtype.BoolOID),
			column("is_approved", pgtype.BoolOID),
			column("requested_by_person_alias_id", pgtype.Int8OID),
			column("category_id", pgtype.Int8OID),
			column("campus_id", pgtype.Int8OID),
		},
	},
	Requires: []string{"campus", "person", "category"},
	Transform: func(tc *Context, g *stream.Group) (*db.Entity, error) {
		rec := g.First()
		f := newFields(rec, g.NaturalID)
		return build(f, db.Row{
			"first_name":                   f.requiredText("FirstName"),
			"last_name":                    f.text("LastName"),
			"email":                        f.text("Email"),
			"text":                         f.requiredText("RequestText"),
			"answer":                       f.text("Answer"),
			"entered_date":                 f.date("EnteredDate"),
			"is_public":                    orDefault(f.boolean("IsPublic"), false),
			"is_approved":                  orDefault(f.boolean("IsApproved"), true),
			"requested_by_person_alias_id": tc.OptionalAlias("person", "PersonId", rec),
			"category_id":                  tc.OptionalID("category", "CategoryId", rec),
			"campus_id":                    tc.OptionalID("campus", "CampusId", rec),
		})
	},
}

var communicationTypes = map[string]string{"email": "Email", "sms": "SMS", "text": "SMS", "push": "PushNotification"}

// Communication rows are grouped by CommunicationId, one row per recipient.
// The first row carries the message.
var Communication = &Kind{
	Name:      "communication",
	KeyColumn: "CommunicationId",
	Grouped:   true,
	Spec: &db.TableSpec{
		Table: "communications",
		Columns: []db.Column{
			column("subject", pgtype.TextOID),
			column("message", pgtype.TextOID),
			column("communication_type", pgtype.TextOID),
			column("sender_person_alias_id", pgtype.Int8OID),
			column("sent_date", pgtype.DateOID),
		},
		Children: []*db.ChildSpec{{
			Table:        "communication_recipients",
			ParentColumn: "communication_id",
			Columns:      []db.Column{column("person_alias_id", pgtype.Int8OID)},
		}},
	},
	Requires: []string{"person"},
	Transform: func(tc *Context, g *stream.Group) (*db.Entity, error) {
		first := g.First()
		recipients := make([]db.Row, 0, len(g.Records))
		seen := make(map[int64]bool)
		for _, rec := range g.Records {
			alias, err := tc.RequiredAlias("person", "RecipientPersonId", rec)
			if err != nil {
				return nil, err
			}
			if seen[alias] {
				continue
			}
			seen[alias] = true
			recipients = append(recipients, db.Row{"person_alias_id": alias})
		}
		f := newFields(first, g.NaturalID)
		e, err := build(f, db.Row{
			"subject":                f.text("Subject"),
			"message":                f.requiredText("Message"),
			"communication_type":     f.enum("CommunicationType", communicationTypes, "Email"),
			"sender_person_alias_id": tc.OptionalAlias("person", "SenderPersonId", first),
			"sent_date":              f.date("SentDate"),
		})
		if err != nil {
			return nil, err
		}
		e.Children = map[string][]db.Row{"communication_recipients": recipients}
		return e, nil
	},
}

var connectionStates = map[string]string{
	"active":           "Active",
	"inactive":         "Inactive",
	"future follow up": "FutureFollowUp",
	"futurefollowup":   "FutureFollowUp",
	"connected":        "Connected",
}

var ConnectionRequest = &Kind{
	Name:      "connection_request",
	KeyColumn: "ConnectionRequestId",
	Spec: &db.TableSpec{
		Table: "connection_requests",
		Columns: []db.Column{
			column("person_alias_id", pgtype.Int8OID),
			column("connector_person_alias_id", pgtype.Int8OID),
			column("opportunity", pgtype.TextOID),
			column("state", pgtype.TextOID),
			column("status", pgtype.TextOID),
			column("comments", pgtype.TextOID),
			column("campus_id", pgtype.Int8OID),
			column("created_date", pgtype.DateOID),
		},
	},
	Requires: []string{"campus", "person"},
	Transform: func(tc *Context, g *stream.Group) (*db.Entity, error) {
		rec := g.First()
		alias, err := tc.RequiredAlias("person", "PersonId", rec)
		if err != nil {
			return nil, err
		}
		f := newFields(rec, g.NaturalID)
		return build(f, db.Row{
			"person_alias_id":           alias,
			"connector_person_alias_id": tc.OptionalAlias("person", "ConnectorPersonId", rec),
			"opportunity":               f.requiredText("OpportunityName"),
			"state":                     f.enum("State", connectionStates, "Active"),
			"status":                    f.text("Status"),
			"comments":                  f.text("Comments"),
			"campus_id":                 tc.OptionalID("campus", "CampusId", rec),
			"created_date":              f.date("CreatedDate"),
		})
	},
}
