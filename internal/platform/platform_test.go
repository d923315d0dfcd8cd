package platform

import "testing"

func TestRegistry(t *testing.T) {
	ids := []string{"dell_g5_5000", "dell_g5_5090", "dell_xps_8940"}
	for _, id := range ids {
		if _, ok := Get(id); !ok {
			t.Errorf("platform %q not registered", id)
		}
	}
	if _, ok := Get("dell_g5_9999"); ok {
		t.Errorf("unknown platform found")
	}

	list := List()
	if len(list) != len(ids) {
		t.Fatalf("List() = %d platforms, want %d", len(list), len(ids))
	}
	for i, p := range list {
		if p.ID != ids[i] {
			t.Errorf("List()[%d] = %q, want %q (sorted)", i, p.ID, ids[i])
		}
	}
}

func TestResolve(t *testing.T) {
	p, _ := Get("dell_g5_5090")

	offset, size, _, err := p.Resolve("CfgLk")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if offset != 0x43 || size != 1 {
		t.Errorf("CfgLk = offset 0x%x size %d, want 0x43 size 1", offset, size)
	}

	offset, size, _, err = p.Resolve("MFreq")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if offset != 0xB1 || size != 2 {
		t.Errorf("MFreq = offset 0x%x size %d, want 0xB1 size 2", offset, size)
	}

	if _, _, _, err := p.Resolve("NoSuch"); err == nil {
		t.Errorf("unknown setting resolved")
	}
}

func TestDetectPrefersMoreSignatures(t *testing.T) {
	img := make([]byte, 0x1000)
	copy(img[0x100:], []byte("Dell Inc.\x00"))
	copy(img[0x200:], []byte("G5 5090\x00"))

	p, ok := Detect(img)
	if !ok {
		t.Fatalf("platform not detected")
	}
	if p.ID != "dell_g5_5090" {
		t.Errorf("detected %q, want dell_g5_5090", p.ID)
	}
}

func TestDetectNothing(t *testing.T) {
	if _, ok := Detect(make([]byte, 0x1000)); ok {
		t.Errorf("platform detected in a zero image")
	}
}

func TestValidatePowerLimits(t *testing.T) {
	p, _ := Get("dell_g5_5090") // 95 W sustained, 115 W burst, 120 W max

	if warnings := p.ValidatePowerLimits(0, 0); len(warnings) != 0 {
		t.Errorf("unset limits warned: %v", warnings)
	}
	if warnings := p.ValidatePowerLimits(65, 90); len(warnings) != 0 {
		t.Errorf("in-spec limits warned: %v", warnings)
	}
	if warnings := p.ValidatePowerLimits(100, 0); len(warnings) != 1 {
		t.Errorf("PL1 over sustained: %d warnings, want 1", len(warnings))
	}
	// 125 W PL1 is over both the sustained spec and the safe maximum.
	if warnings := p.ValidatePowerLimits(125, 0); len(warnings) != 2 {
		t.Errorf("PL1 over max safe: %d warnings, want 2", len(warnings))
	}
}

func TestSupportsCPUID(t *testing.T) {
	p, _ := Get("dell_g5_5090")
	if !p.SupportsCPUID(0x906EA) {
		t.Errorf("i9-9900 signature rejected")
	}
	if p.SupportsCPUID(0xA0671) {
		t.Errorf("11th gen signature accepted on a B365 board")
	}
}
