package kinds

import (
	"github.com/KingdomFirst/Bulldozer-sub001/importer/db"
	"github.com/KingdomFirst/Bulldozer-sub001/importer/stream"
	"github.com/jackc/pgtype"
)

var Account = &Kind{
	Name:      "account",
	KeyColumn: "AccountId",
	Spec: &db.TableSpec{
		Table: "financial_accounts",
		Columns: []db.Column{
			column("name", pgtype.TextOID),
			column("public_name", pgtype.TextOID),
			column("parent_account_id", pgtype.Int8OID),
			column("campus_id", pgtype.Int8OID),
			column("is_tax_deductible", pgtype.BoolOID),
			column("is_active", pgtype.BoolOID),
			column("start_date", pgtype.DateOID),
			column("end_date", pgtype.DateOID),
		},
	},
	ParentColumn: "parent_account_id",
	ParentSource: "ParentAccountId",
	Requires:     []string{"campus", "account"},
	Transform: func(tc *Context, g *stream.Group) (*db.Entity, error) {
		rec := g.First()
		f := newFields(rec, g.NaturalID)
		parent, deferred := tc.Parent("account", "ParentAccountId", rec)
		e, err := build(f, db.Row{
			"name":              f.requiredText("AccountName"),
			"public_name":       f.text("PublicName"),
			"parent_account_id": parent,
			"campus_id":         tc.OptionalID("campus", "CampusId", rec),
			"is_tax_deductible": orDefault(f.boolean("IsTaxDeductible"), true),
			"is_active":         orDefault(f.boolean("IsActive"), true),
			"start_date":        f.date("StartDate"),
			"end_date":          f.date("EndDate"),
		})
		if err != nil {
			return nil, err
		}
		e.ParentKey = deferred
		return e, nil
	},
}

var batchStatuses = map[string]string{"open": "Open", "closed": "Closed", "pending": "Pending"}

var Batch = &Kind{
	Name:      "batch",
	KeyColumn: "BatchId",
	Spec: &db.TableSpec{
		Table: "financial_batches",
		Columns: []db.Column{
			column("name", pgtype.TextOID),
			column("batch_date", pgtype.DateOID),
			column("status", pgtype.TextOID),
			column("control_amount", pgtype.NumericOID),
			column("campus_id", pgtype.Int8OID),
		},
	},
	Requires: []string{"campus"},
	Transform: func(tc *Context, g *stream.Group) (*db.Entity, error) {
		rec := g.First()
		f := newFields(rec, g.NaturalID)
		return build(f, db.Row{
			"name":           orDefault(f.text("BatchName"), "Imported Batch "+g.NaturalID),
			"batch_date":     f.date("BatchDate"),
			"status":         f.enum("BatchStatus", batchStatuses, "Closed"),
			"control_amount": f.money("ControlAmount"),
			"campus_id":      tc.OptionalID("campus", "CampusId", rec),
		})
	},
}

var currencyTypes = map[string]string{
	"cash":        "Cash",
	"check":       "Check",
	"credit card": "Credit Card",
	"creditcard":  "Credit Card",
	"ach":         "ACH",
	"other":       "Other",
	"non-cash":    "Non-Cash",
}

var transactionTypes = map[string]string{"contribution": "Contribution", "event registration": "Event Registration"}

// Transaction carries a single account detail. The giver is optional and is stored as a person alias.
var Transaction = &Kind{
	Name:      "transaction",
	KeyColumn: "TransactionId",
	Spec: &db.TableSpec{
		Table: "financial_transactions",
		Columns: []db.Column{
			column("batch_id", pgtype.Int8OID),
			column("account_id", pgtype.Int8OID),
			column("authorized_person_alias_id", pgtype.Int8OID),
			column("transaction_date", pgtype.DateOID),
			column("amount", pgtype.NumericOID),
			column("transaction_code", pgtype.TextOID),
			column("summary", pgtype.TextOID),
			column("currency_type", pgtype.TextOID),
			column("transaction_type", pgtype.TextOID),
		},
	},
	Requires: []string{"person", "account", "batch"},
	Transform: func(tc *Context, g *stream.Group) (*db.Entity, error) {
		rec := g.First()
		batch, err := tc.Required("batch", "BatchId", rec)
		if err != nil {
			return nil, err
		}
		account, err := tc.Required("account", "AccountId", rec)
		if err != nil {
			return nil, err
		}
		f := newFields(rec, g.NaturalID)
		amount := f.money("Amount")
		if amount == nil {
			f.fail("Amount")
		}
		return build(f, db.Row{
			"batch_id":                   batch.ID,
			"account_id":                 account.ID,
			"authorized_person_alias_id": tc.OptionalAlias("person", "PersonId", rec),
			"transaction_date":           f.date("TransactionDate"),
			"amount":                     amount,
			"transaction_code":           f.text("TransactionCode"),
			"summary":                    f.text("Summary"),
			"currency_type":              f.enum("CurrencyType", currencyTypes, nil),
			"transaction_type":           f.enum("TransactionType", transactionTypes, "Contribution"),
		})
	},
}
