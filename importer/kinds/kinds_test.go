package kinds

import (
	"errors"
	"testing"
	"time"

	"github.com/KingdomFirst/Bulldozer-sub001/importer/db"
	"github.com/KingdomFirst/Bulldozer-sub001/importer/index"
	"github.com/KingdomFirst/Bulldozer-sub001/importer/key"
	"github.com/KingdomFirst/Bulldozer-sub001/importer/stream"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(maps map[string]map[string]db.Reference) *Context {
	deps := index.NewDependencies()
	for kind, refs := range maps {
		deps.Set(kind, index.NewDependencyMap(refs))
	}
	return NewContext(key.NewResolver("F1"), deps)
}

func group(header []string, rows ...[]string) *stream.Group {
	src := stream.NewSliceSource(header, rows...)
	var records []db.Record
	for {
		rec, err := src.Next()
		if err != nil {
			break
		}
		records = append(records, rec)
	}
	return &stream.Group{NaturalID: records[0].At(0), Records: records}
}

func rowError(t *testing.T, err error) *db.RowError {
	t.Helper()
	var rowErr *db.RowError
	require.True(t, errors.As(err, &rowErr), "expected a row error, got %v", err)
	return rowErr
}

func TestDefaultRegistry(t *testing.T) {
	r := Default()
	assert.Equal(t, []string{
		"campus", "person", "family", "phone", "note", "user_login", "account", "batch",
		"transaction", "category", "location", "schedule", "prayer_request", "communication", "connection_request",
	}, r.Names())

	tables := make(map[string]bool)
	for _, spec := range r.Specs() {
		assert.False(t, tables[spec.Table], "table %s used twice", spec.Table)
		tables[spec.Table] = true
	}

	selected, err := r.Select([]string{"transaction", "person"})
	require.NoError(t, err)
	assert.Equal(t, []*Kind{Person, Transaction}, selected)

	_, err = r.Select([]string{"nope"})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestNewRegistry_DependencyOrdering(t *testing.T) {
	_, err := NewRegistry(Transaction, Person)
	assert.ErrorContains(t, err, "requires person")

	_, err = NewRegistry(Campus, Campus)
	assert.ErrorContains(t, err, "registered twice")

	_, err = NewRegistry(&Kind{Name: "broken"})
	assert.ErrorContains(t, err, "incomplete")
}

func TestPerson_Transform(t *testing.T) {
	header := []string{"PersonId", "FirstName", "LastName", "Gender", "BirthDate", "CampusId"}
	tc := testContext(map[string]map[string]db.Reference{"campus": {"F1^C1": {ID: 5}}})

	e, err := Person.Transform(tc, group(header, []string{"P1", "Ann", "Lee", "f", "1980-02-03", "C1"}))
	require.NoError(t, err)
	assert.Equal(t, "Female", e.Values["gender"])
	assert.Equal(t, int64(5), e.Values["campus_id"])
	assert.Equal(t, time.Date(1980, 2, 3, 0, 0, 0, 0, time.UTC), e.Values["birth_date"])
	assert.Equal(t, "Active", e.Values["record_status"])
	require.Len(t, e.Children["person_aliases"], 1)
	assert.NotEmpty(t, e.Children["person_aliases"][0]["alias_guid"])

	// unknown optional campus leaves the field unset
	e, err = Person.Transform(tc, group(header, []string{"P2", "Bo", "Lee", "", "", "C9"}))
	require.NoError(t, err)
	assert.Nil(t, e.Values["campus_id"])
	assert.Equal(t, "Unknown", e.Values["gender"])

	_, err = Person.Transform(tc, group(header, []string{"P3", "Cy", "Lee", "x", "", ""}))
	assert.Equal(t, &db.RowError{Category: "invalid Gender", Message: "P3"}, rowError(t, err))

	_, err = Person.Transform(tc, group(header, []string{"P4", "Di", "Lee", "", "31/31/2000", ""}))
	assert.Equal(t, "invalid BirthDate", rowError(t, err).Category)
}

func TestTransaction_Transform(t *testing.T) {
	header := []string{"TransactionId", "BatchId", "AccountId", "PersonId", "Amount", "TransactionDate"}
	tc := testContext(map[string]map[string]db.Reference{
		"batch":   {"F1^B1": {ID: 1}},
		"account": {"F1^A1": {ID: 2}},
		"person":  {"F1^P1": {ID: 3, AliasID: 30}},
	})

	e, err := Transaction.Transform(tc, group(header, []string{"T1", "B1", "A1", "P1", "$1,234.567", "1/2/2020"}))
	require.NoError(t, err)
	assert.Equal(t, int64(1), e.Values["batch_id"])
	assert.Equal(t, int64(2), e.Values["account_id"])
	assert.Equal(t, int64(30), e.Values["authorized_person_alias_id"])
	assert.True(t, decimal.RequireFromString("1234.57").Equal(e.Values["amount"].(decimal.Decimal)))
	assert.Equal(t, "Contribution", e.Values["transaction_type"])

	e, err = Transaction.Transform(tc, group(header, []string{"T2", "B1", "A1", "P7", "10", ""}))
	require.NoError(t, err)
	assert.Nil(t, e.Values["authorized_person_alias_id"])

	_, err = Transaction.Transform(tc, group(header, []string{"T3", "B9", "A1", "P1", "10", ""}))
	assert.Equal(t, &db.RowError{Category: "missing BatchId", Message: "B9"}, rowError(t, err))

	_, err = Transaction.Transform(tc, group(header, []string{"T4", "B1", "A1", "P1", "", ""}))
	assert.Equal(t, &db.RowError{Category: "invalid Amount", Message: "T4"}, rowError(t, err))
}

func TestFamily_Transform(t *testing.T) {
	header := []string{"FamilyId", "FamilyName", "PersonId", "FamilyRole", "LastName"}
	tc := testContext(map[string]map[string]db.Reference{
		"person": {"F1^P1": {ID: 1, AliasID: 10}, "F1^P2": {ID: 2, AliasID: 20}},
	})

	e, err := Family.Transform(tc, group(header,
		[]string{"FAM1", "", "P1", "adult", "Lee"},
		[]string{"FAM1", "", "P2", "c", "Lee"},
		[]string{"FAM1", "", "P2", "c", "Lee"},
	))
	require.NoError(t, err)
	assert.Equal(t, "Lee Family", e.Values["name"])
	assert.Equal(t, []db.Row{
		{"person_id": int64(1), "role": "Adult"},
		{"person_id": int64(2), "role": "Child"},
	}, e.Children["family_members"])

	_, err = Family.Transform(tc, group(header,
		[]string{"FAM2", "The Lees", "P1", "", ""},
		[]string{"FAM2", "", "P7", "", ""},
	))
	assert.Equal(t, &db.RowError{Category: "missing PersonId", Message: "P7"}, rowError(t, err))

	// a blank member id is reported by line so the row can be found
	_, err = Family.Transform(tc, group(header,
		[]string{"FAM3", "The Lees", "P1", "", ""},
		[]string{"FAM3", "", "", "", ""},
	))
	assert.Equal(t, &db.RowError{Category: "missing PersonId", Message: "line 3"}, rowError(t, err))
}

func TestCategory_Transform_DefersUnknownParent(t *testing.T) {
	header := []string{"CategoryId", "CategoryName", "EntityType", "ParentCategoryId"}
	tc := testContext(map[string]map[string]db.Reference{"category": {"F1^C1": {ID: 9}}})

	e, err := Category.Transform(tc, group(header, []string{"C2", "Child", "Group", "C1"}))
	require.NoError(t, err)
	assert.Equal(t, int64(9), e.Values["parent_category_id"])
	assert.Equal(t, "", e.ParentKey)

	e, err = Category.Transform(tc, group(header, []string{"C3", "Orphan", "Group", "C4"}))
	require.NoError(t, err)
	assert.Nil(t, e.Values["parent_category_id"])
	assert.Equal(t, "F1^C4", e.ParentKey)

	e, err = Category.Transform(tc, group(header, []string{"C5", "Root", "Group", ""}))
	require.NoError(t, err)
	assert.Equal(t, "", e.ParentKey)
}

func TestLocation_Transform(t *testing.T) {
	header := []string{"LocationId", "LocationName", "Latitude", "Longitude"}
	tc := testContext(nil)

	e, err := Location.Transform(tc, group(header,
		[]string{"L1", "Campus", "1", "2"},
		[]string{"L1", "", "3", "4"},
		[]string{"L1", "", "5", "6"},
	))
	require.NoError(t, err)
	assert.Equal(t, "POLYGON((2 1, 4 3, 6 5, 2 1))", e.Values["geo_fence"])
	assert.Nil(t, e.Values["geo_point"])

	e, err = Location.Transform(tc, group(header, []string{"L2", "Room", "10.5", "-20.25"}))
	require.NoError(t, err)
	assert.Equal(t, "POINT(-20.25 10.5)", e.Values["geo_point"])

	_, err = Location.Transform(tc, group(header, []string{"L3", "Bad", "91", "0"}))
	assert.Equal(t, "invalid Latitude", rowError(t, err).Category)
}

func TestCommunication_Transform(t *testing.T) {
	header := []string{"CommunicationId", "Message", "RecipientPersonId"}
	tc := testContext(map[string]map[string]db.Reference{"person": {"F1^P1": {ID: 1, AliasID: 10}}})

	e, err := Communication.Transform(tc, group(header, []string{"M1", "hello", "P1"}, []string{"M1", "", "P1"}))
	require.NoError(t, err)
	assert.Equal(t, []db.Row{{"person_alias_id": int64(10)}}, e.Children["communication_recipients"])

	_, err = Communication.Transform(tc, group(header, []string{"M2", "hello", "P1"}, []string{"M2", "", "P7"}))
	assert.Equal(t, &db.RowError{Category: "missing RecipientPersonId", Message: "P7"}, rowError(t, err))

}

func TestRequiredAlias(t *testing.T) {
	tc := testContext(map[string]map[string]db.Reference{"person": {"F1^P1": {ID: 1, AliasID: 10}, "F1^P2": {ID: 2}}})
	header := []string{"CommunicationId", "Message", "RecipientPersonId"}

	_, err := Communication.Transform(tc, group(header, []string{"M3", "hello", "P1"}, []string{"M3", "", "P2"}))
	assert.Equal(t, &db.RowError{Category: "missing RecipientPersonId", Message: "P2"}, rowError(t, err))

	_, err = ConnectionRequest.Transform(tc, group([]string{"ConnectionRequestId", "PersonId", "OpportunityName"},
		[]string{"CR1", "P2", "Serve"}))
	assert.Equal(t, &db.RowError{Category: "missing PersonId", Message: "P2"}, rowError(t, err))

	e, err := ConnectionRequest.Transform(tc, group([]string{"ConnectionRequestId", "PersonId", "OpportunityName"},
		[]string{"CR2", "P1", "Serve"}))
	require.NoError(t, err)
	assert.Equal(t, int64(10), e.Values["person_alias_id"])
}

func TestPhoneAndSchedule_Transform(t *testing.T) {
	tc := testContext(map[string]map[string]db.Reference{"person": {"F1^P1": {ID: 1}}})

	e, err := Phone.Transform(tc, group([]string{"PhoneId", "PersonId", "PhoneNumber", "PhoneType"},
		[]string{"PH1", "P1", "(555) 123-4567", "cell"}))
	require.NoError(t, err)
	assert.Equal(t, "5551234567", e.Values["number"])
	assert.Equal(t, "Mobile", e.Values["phone_type"])

	e, err = Schedule.Transform(tc, group([]string{"ScheduleId", "ScheduleName", "DayOfWeek", "TimeOfDay"},
		[]string{"S1", "Sunday 9am", "sun", "9:00 am"}))
	require.NoError(t, err)
	assert.Equal(t, "Sunday", e.Values["weekly_day_of_week"])
	assert.Equal(t, "09:00:00", e.Values["weekly_time_of_day"])
}
