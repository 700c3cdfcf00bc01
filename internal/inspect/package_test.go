package inspect

import "testing"

func TestPoolPathUsesFirstLetterPrefix(t *testing.T) {
	got := PoolPath("main", "foo", "foo_1.0_amd64.deb")
	want := "pool/main/f/foo/foo_1.0_amd64.deb"
	if got != want {
		t.Fatalf("PoolPath() = %q, want %q", got, want)
	}
}

func TestPoolPathUsesLibPlusFourthCharForLibNames(t *testing.T) {
	got := PoolPath("main", "libssl", "libssl_1.1_amd64.deb")
	want := "pool/main/libs/libssl/libssl_1.1_amd64.deb"
	if got != want {
		t.Fatalf("PoolPath() = %q, want %q", got, want)
	}
}

func TestPoolPathHandlesShortLibPrefixedName(t *testing.T) {
	got := PoolPath("main", "lib", "lib_1.0_amd64.deb")
	want := "pool/main/l/lib/lib_1.0_amd64.deb"
	if got != want {
		t.Fatalf("PoolPath() = %q, want %q", got, want)
	}
}
