package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCheckerPolicy(t *testing.T) {
	c := NewChecker(nil)
	cases := []struct {
		role, perm string
		want       bool
	}{
		{RoleStudent, PermInsightsViewOwn, true},
		{RoleStudent, PermInsightsViewAll, false},
		{RoleStudent, PermItemsWrite, false},
		{RoleTeacher, PermInsightsViewAll, true},
		{RoleTeacher, PermItemsWrite, true},
		{RoleTeacher, PermChatUse, false},
		{RoleAdmin, "anything:at-all", true},
		{"ghost", PermChatUse, false},
	}
	for _, tc := range cases {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Errorf("Has(%s, %s) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
	if !c.All(RoleStudent, PermChatUse, PermStudyAidGenerate) || c.Any(RoleStudent, PermItemsWrite, PermAttemptsAll) {
		t.Fatal("Any/All disagree with policy")
	}
}

func serve(h http.Handler, role, sub string) int {
	req := httptest.NewRequest(http.MethodGet, "/students/s1/learning-gaps", nil)
	ctx := WithSubject(WithRole(context.Background(), role), sub)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(ctx))
	return rec.Code
}

func TestRequireOwnerOr(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	isOwner := func(r *http.Request) bool { return SubjectFromContext(r.Context()) == "s1" }
	h := RequireOwnerOr(PermInsightsViewOwn, PermInsightsViewAll, isOwner)(ok)

	cases := []struct {
		role, sub string
		want      int
	}{
		{RoleStudent, "s1", http.StatusNoContent},
		{RoleStudent, "s2", http.StatusForbidden},
		{RoleTeacher, "t1", http.StatusNoContent},
		{"", "s1", http.StatusForbidden},
	}
	for _, tc := range cases {
		if got := serve(h, tc.role, tc.sub); got != tc.want {
			t.Errorf("%s/%s: status %d, want %d", tc.role, tc.sub, got, tc.want)
		}
	}
}

func TestRequire(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := Require(PermItemsWrite)(ok)
	if got := serve(h, RoleStudent, "s1"); got != http.StatusForbidden {
		t.Fatalf("student status = %d", got)
	}
	if got := serve(h, RoleTeacher, "t1"); got != http.StatusNoContent {
		t.Fatalf("teacher status = %d", got)
	}
	either := RequireAny(PermItemsWrite, PermChatUse)(ok)
	if got := serve(either, RoleStudent, "s1"); got != http.StatusNoContent {
		t.Fatalf("either status = %d", got)
	}
}
