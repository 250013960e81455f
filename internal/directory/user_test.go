package directory

import (
	"reflect"
	"testing"

	"github.com/kailas-cloud/esrepo/internal/mapping"
)

func TestUserMapping(t *testing.T) {
	m, err := mapping.For[User](mapping.NewCache())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Index != Index || m.TypeName != "user" || m.IDField != "ID" {
		t.Errorf("mapping = %s/%s id %s", m.Index, m.TypeName, m.IDField)
	}
	if m.Settings == nil || m.Settings.Shards != 1 || m.Settings.Replicas != 1 {
		t.Errorf("settings = %+v", m.Settings)
	}

	u := &User{ID: "u1", Username: "ann", Address: &Address{City: "Lyon"}}
	if !m.SetField(u, "address.city", "<em>Lyon</em>") {
		t.Fatal("expected nested highlight path to resolve")
	}
	if u.Address.City != "<em>Lyon</em>" {
		t.Errorf("city = %q", u.Address.City)
	}
}

func TestUserPublic(t *testing.T) {
	u := User{ID: "1", Username: "ann", Password: "secret"}
	want := User{ID: "1", Username: "ann"}
	if got := u.Public(); !reflect.DeepEqual(got, want) {
		t.Errorf("Public() = %+v, want %+v", got, want)
	}
	if u.Password != "secret" {
		t.Error("Public must not modify the receiver")
	}
}
