package registry

import (
	"os"
	"path/filepath"
	"testing"

	clierr "swapDesk/internal/errors"
)

func TestBuiltinDeploymentsResolveEveryRole(t *testing.T) {
	reg := New()
	for _, name := range reg.Names() {
		dep, err := reg.Lookup(name)
		if err != nil {
			t.Fatalf("lookup %s: %v", name, err)
		}
		for _, role := range dep.Roles() {
			parsed, ok := dep.ABI(role)
			if !ok {
				t.Fatalf("%s: role %s has no abi", name, role)
			}
			if len(parsed.Methods) == 0 {
				t.Fatalf("%s: role %s abi is empty", name, role)
			}
		}
	}
}

func TestQuoterOptional(t *testing.T) {
	dep, err := Lookup("app")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if dep.HasRole(RoleQuoter) {
		t.Fatalf("app deployment should not bind a quoter")
	}
	if !dep.HasRole(RoleManager) {
		t.Fatalf("app deployment should bind a manager")
	}

	dep, err = Lookup(DefaultDeployment)
	if err != nil {
		t.Fatalf("lookup default: %v", err)
	}
	if !dep.HasRole(RoleQuoter) {
		t.Fatalf("default deployment should bind a quoter")
	}
}

func TestLookupRejectsMalformedAddress(t *testing.T) {
	reg := New()
	def := builtinDefinitions["ui"]
	def.Pool = "0x1234"
	if err := reg.Register("broken", def); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := reg.Lookup("broken")
	if !clierr.HasCode(err, clierr.CodeConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestLookupRejectsMissingABI(t *testing.T) {
	reg := New()
	def := builtinDefinitions["ui"]
	def.ABIs = []string{"ERC20", "Pool", "Manager"}
	if err := reg.Register("no-quoter-abi", def); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := reg.Lookup("no-quoter-abi")
	if !clierr.HasCode(err, clierr.CodeConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestLookupRejectsMissingRequiredRole(t *testing.T) {
	def := builtinDefinitions["app"]
	def.Manager = ""
	if _, err := Build("partial", def); !clierr.HasCode(err, clierr.CodeConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestLookupUnknownDeployment(t *testing.T) {
	if _, err := Lookup("mainnet"); !clierr.HasCode(err, clierr.CodeConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestBuildLoadsABIDir(t *testing.T) {
	dir := t.TempDir()
	for _, kind := range []Kind{KindERC20, KindPool, KindManager} {
		data, err := abiFS.ReadFile("abi/" + string(kind) + ".json")
		if err != nil {
			t.Fatalf("read embedded: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, string(kind)+".json"), data, 0o644); err != nil {
			t.Fatalf("write abi: %v", err)
		}
	}

	def := builtinDefinitions["app"]
	def.ABIDir = dir
	dep, err := Build("files", def)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	parsed, ok := dep.ABI(RoleManager)
	if !ok {
		t.Fatalf("manager abi missing")
	}
	if _, ok := parsed.Methods["swap"]; !ok {
		t.Fatalf("manager swap method missing")
	}

	def.ABIs = append(def.ABIs, "Quoter")
	def.Quoter = "0xD7314A78282Eb07106d572E63A002d58BF729f3c"
	if _, err := Build("files", def); !clierr.HasCode(err, clierr.CodeConfig) {
		t.Fatalf("expected config error for missing abi file, got %v", err)
	}
}

func TestRoleOf(t *testing.T) {
	dep, err := Lookup("ui")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	pool, _ := dep.Address(RolePool)
	role, ok := dep.RoleOf(pool)
	if !ok || role != RolePool {
		t.Fatalf("role mismatch: %s", role)
	}
}

func TestParseAddresses(t *testing.T) {
	got, err := ParseAddresses([]string{" 0x1111111111111111111111111111111111111111 ", "", "0x2222222222222222222222222222222222222222"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 addresses, got %d", len(got))
	}
	if _, err := ParseAddresses([]string{"nope"}); err == nil {
		t.Fatalf("expected error for invalid address")
	}
}
