package engine

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"table-crud/internal/schema"
)

func formConfig(specs ...string) *schema.TableConfig {
	return &schema.TableConfig{
		View:       "contacts",
		Table:      "contacts",
		PrimaryKey: "id",
		Columns:    schema.ParseColumns(specs),
		PageSize:   5,
		Show:       schema.ShowAll(),
	}
}

func TestCoerceFieldsHappyPath(t *testing.T) {
	cfg := formConfig(
		"fieldname=name;displayname=Name;displaytype=text",
		"fieldname=age;displayname=Age;displaytype=number",
	)
	sub := CoerceFields(cfg, url.Values{
		"name": {"  Ada Lovelace  "},
		"age":  {"36"},
	})

	require.True(t, sub.OK())
	assert.Equal(t, "Ada Lovelace", sub.Values["name"])
	assert.Equal(t, "36", sub.Values["age"])
	assert.Equal(t, int64(36), sub.Bind["age"])
}

func TestCoerceFieldsRequired(t *testing.T) {
	cfg := formConfig(
		"fieldname=name;displayname=Name;displaytype=text",
		"fieldname=notes;displayname=Notes;displaytype=textarea",
	)
	sub := CoerceFields(cfg, url.Values{"name": {"x"}, "notes": {"   "}})

	assert.False(t, sub.OK())
	assert.Equal(t, RuleRequired, sub.Errors["notes"])
	_, nameFlagged := sub.Errors["name"]
	assert.False(t, nameFlagged)
}

func TestCoerceFieldsReadOnlyExemptFromRequired(t *testing.T) {
	cfg := formConfig(
		"fieldname=id;displayname=ID;displaytype=text;readonly=true",
		"fieldname=name;displayname=Name;displaytype=text",
	)
	sub := CoerceFields(cfg, url.Values{"name": {"x"}})

	assert.True(t, sub.OK())
	assert.Equal(t, "", sub.Values["id"])
}

func TestCoerceTel(t *testing.T) {
	cfg := formConfig("fieldname=phone;displayname=Phone;displaytype=tel")

	valid := []string{
		"+1 123-456-7890",
		"(123) 456-7890",
		"1234567890",
		"123.456.7890",
		"123-456-7890",
	}
	for _, v := range valid {
		sub := CoerceFields(cfg, url.Values{"phone": {v}})
		assert.Truef(t, sub.OK(), "phone=%q should pass", v)
		assert.Equal(t, v, sub.Values["phone"])
	}

	invalid := []string{"abc-defg", "12345", "123-456-789", "++1 1234567890"}
	for _, v := range invalid {
		sub := CoerceFields(cfg, url.Values{"phone": {v}})
		assert.Equalf(t, RuleFormat, sub.Errors["phone"], "phone=%q should be flagged", v)
		// Rejected input is preserved for re-display.
		assert.Equal(t, v, sub.Values["phone"])
	}
}

func TestCoerceNumber(t *testing.T) {
	cfg := formConfig("fieldname=qty;displayname=Qty;displaytype=number")

	for _, v := range []string{"42", "-3", "+7", "3.25", ".5"} {
		sub := CoerceFields(cfg, url.Values{"qty": {v}})
		assert.Truef(t, sub.OK(), "qty=%q should pass", v)
	}

	// Non-numeric input blanks out, which then reads as missing.
	for _, v := range []string{"1e3", "12abc", "--4", "1.2.3"} {
		sub := CoerceFields(cfg, url.Values{"qty": {v}})
		assert.Equalf(t, RuleRequired, sub.Errors["qty"], "qty=%q", v)
		assert.Equal(t, "", sub.Values["qty"])
	}
}

func TestCoerceURL(t *testing.T) {
	cfg := formConfig("fieldname=site;displayname=Site;displaytype=url")

	sub := CoerceFields(cfg, url.Values{"site": {"https://example.com/a?b=c"}})
	assert.True(t, sub.OK())

	// Relative and garbage values blank out.
	for _, v := range []string{"not a url", "/relative/path"} {
		sub := CoerceFields(cfg, url.Values{"site": {v}})
		assert.Equalf(t, "", sub.Values["site"], "site=%q", v)
	}
}

func TestCoerceEmailStripsWhitespaceOnly(t *testing.T) {
	cfg := formConfig("fieldname=email;displayname=Email;displaytype=email")

	sub := CoerceFields(cfg, url.Values{"email": {" a b@ex ample.com "}})
	assert.True(t, sub.OK())
	assert.Equal(t, "ab@example.com", sub.Values["email"])

	// Syntax is not enforced.
	sub = CoerceFields(cfg, url.Values{"email": {"not-an-email"}})
	assert.True(t, sub.OK())
	assert.Equal(t, "not-an-email", sub.Values["email"])
}

func TestCoerceCheckboxAbsentMeansZero(t *testing.T) {
	cfg := formConfig(
		"fieldname=name;displayname=Name;displaytype=text",
		"fieldname=active;displayname=Active;displaytype=checkbox",
	)

	sub := CoerceFields(cfg, url.Values{"name": {"x"}})
	require.True(t, sub.OK())
	assert.Equal(t, "0", sub.Values["active"])
	assert.Equal(t, int64(0), sub.Bind["active"])

	sub = CoerceFields(cfg, url.Values{"name": {"x"}, "active": {"1"}})
	assert.Equal(t, "1", sub.Values["active"])
}

func TestCoerceTextareaKeepsInteriorNewlines(t *testing.T) {
	cfg := formConfig("fieldname=notes;displayname=Notes;displaytype=textarea")

	sub := CoerceFields(cfg, url.Values{"notes": {"\nline one\nline two\n"}})
	assert.Equal(t, "line one\nline two", sub.Values["notes"])
}

func TestBindValue(t *testing.T) {
	assert.Equal(t, int64(42), BindValue("42"))
	assert.Equal(t, int64(-7), BindValue("-7"))
	assert.Equal(t, 42.5, BindValue("42.5"))
	assert.Equal(t, "forty-two", BindValue("forty-two"))
	assert.Equal(t, "", BindValue(""))
	assert.Equal(t, "12abc", BindValue("12abc"))
}
