package user

import (
	"reflect"
	"testing"

	"github.com/sudo-init-do/lanceo/internal/remote"
)

func TestRoleFromType(t *testing.T) {
	cases := map[string]Role{
		"client":    RoleClient,
		"freelance": RoleProvider,
		"":          RoleProvider,
		"admin":     RoleProvider,
	}
	for in, want := range cases {
		if got := RoleFromType(in); got != want {
			t.Errorf("RoleFromType(%q) = %q, want %q", in, got, want)
		}
	}
	if RoleClient.RemoteType() != TypeClient || RoleProvider.RemoteType() != TypeFreelance {
		t.Error("RemoteType is not the inverse of RoleFromType")
	}
}

func TestFromAuthUserDefaults(t *testing.T) {
	id := FromAuthUser(remote.AuthUser{ID: "u1", Email: "kwame@afritech.com"})

	if id.Name != "kwame" {
		t.Errorf("name = %q, want email local part", id.Name)
	}
	if id.Role != RoleProvider {
		t.Errorf("role = %q, want provider", id.Role)
	}
	if id.ProfileCompletion != 0 || len(id.Skills) != 0 || id.Skills == nil {
		t.Errorf("expected zeroed completion and empty skills, got %d %v", id.ProfileCompletion, id.Skills)
	}
	if id.Avatar != PlaceholderAvatar("User") {
		t.Errorf("avatar = %q", id.Avatar)
	}
}

func TestFromAuthUserMetadata(t *testing.T) {
	id := FromAuthUser(remote.AuthUser{
		ID:    "u2",
		Email: "ama@example.com",
		Metadata: map[string]any{
			"name":   "Ama Mensah",
			"type":   "client",
			"avatar": "https://cdn.example/ama.png",
		},
	})
	if id.Name != "Ama Mensah" || id.Role != RoleClient || id.Avatar != "https://cdn.example/ama.png" {
		t.Errorf("unexpected identity %+v", id)
	}
}

func TestOverlayProfile(t *testing.T) {
	id := FromAuthUser(remote.AuthUser{ID: "u1", Email: "a@b.c"})
	OverlayProfile(&id, remote.Row{
		"name":        "Grace Mutua",
		"location":    "Nairobi, Kenya",
		"hourly_rate": 50.0,
		"skills":      []any{"Flutter", "Dart"},
		"tagline":     nil,
		"verified":    true,
		"github":      "https://github.com/grace",
	})

	if id.Name != "Grace Mutua" || id.Location != "Nairobi, Kenya" || id.HourlyRate != 50 {
		t.Errorf("overlay missed fields: %+v", id)
	}
	if !reflect.DeepEqual(id.Skills, []string{"Flutter", "Dart"}) {
		t.Errorf("skills = %v", id.Skills)
	}
	if !reflect.DeepEqual(id.Verifications, []string{"email", "identity"}) {
		t.Errorf("verifications = %v", id.Verifications)
	}
	if id.Social.GitHub != "https://github.com/grace" {
		t.Errorf("github = %q", id.Social.GitHub)
	}
}

func TestPatchLeavesUnspecifiedFields(t *testing.T) {
	id := Demo()
	before := id.Clone()

	loc := "Dakar, Senegal"
	rate := 0.0
	p := Patch{Location: &loc, HourlyRate: &rate}
	p.Apply(&id)

	if id.Location != loc || id.HourlyRate != 0 {
		t.Fatalf("patched fields not applied: %+v", id)
	}
	before.Location = loc
	before.HourlyRate = 0
	if !reflect.DeepEqual(id, before) {
		t.Fatalf("unspecified fields changed:\n got %+v\nwant %+v", id, before)
	}
}

func TestPatchColumns(t *testing.T) {
	name := "Kwame Osei"
	avatar := "https://cdn.example/k.png"
	rate := 60.0
	p := Patch{Name: &name, Avatar: &avatar, HourlyRate: &rate, Skills: []string{}}

	want := remote.Row{
		"name":        name,
		"avatar_url":  avatar,
		"hourly_rate": rate,
		"skills":      []string{},
	}
	if got := p.Columns(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Columns = %v, want %v", got, want)
	}
	if p.Empty() {
		t.Fatal("patch should not be empty")
	}
	if !(Patch{}).Empty() {
		t.Fatal("zero patch should be empty")
	}
}

func TestPatchInverseRestores(t *testing.T) {
	id := Demo()
	original := id.Clone()

	bio := "new bio"
	p := Patch{Bio: &bio, Skills: []string{"Go"}}
	inv := p.Inverse(id)
	p.Apply(&id)
	inv.Apply(&id)

	if !reflect.DeepEqual(id, original) {
		t.Fatalf("inverse did not restore:\n got %+v\nwant %+v", id, original)
	}
}
