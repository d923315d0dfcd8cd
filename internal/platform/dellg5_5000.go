package platform

// Dell G5 5000: Rocket Lake refresh on B560/H570. The offset table is
// inferred from the 5090 layout and has not been verified against a
// Setup dump; forms discovery is the primary path on this model.
func init() {
	register(&Platform{
		ID:           "dell_g5_5000",
		Name:         "Dell G5 5000",
		Codename:     "Inspiron 5000",
		Manufacturer: "Dell",
		PCH:          "B560/H570",

		SupportedCPUIDs: []uint32{
			0xA0671, // i9-11900
			0xA0670, // i7-11700
			0xA0672, // i5-11600/11400
			0xA0673, // i3-11320
		},

		SustainedW: 105,
		BurstW:     125,
		MaxSafeW:   135,

		StaticOffsets: map[string]StaticOffset{
			"CfgLk":  {0x43, 1, "CFG Lock (MSR 0xE2)"},
			"OcLk":   {0x44, 1, "Overclocking Lock"},
			"PlLk":   {0x5E, 1, "Power Limit Lock"},
			"BiosLk": {0x5F, 1, "BIOS Interface Lock"},
			"Pl1L":   {0x66, 1, "PL1 Low Byte"},
			"Pl1H":   {0x67, 1, "PL1 High Byte"},
			"Pl2L":   {0x68, 1, "PL2 Low Byte"},
			"Pl2H":   {0x69, 1, "PL2 High Byte"},
			"VcOL":   {0x70, 1, "Vcore Offset Low"},
			"VcOH":   {0x71, 1, "Vcore Offset High"},
			"RgOL":   {0x74, 1, "Ring Offset Low"},
			"RgOH":   {0x75, 1, "Ring Offset High"},
			"A4G":    {0xD0, 1, "Above 4G Decoding"},
			"RBar":   {0xD1, 1, "Resizable BAR"},
			"Hap":    {0x107, 1, "High Assurance Platform (ME Disable)"},
		},

		BIOSVersions: []string{"1.0.0", "1.1.0", "1.2.0"},

		Signatures: [][]byte{
			[]byte("Dell Inc.\x00"),
			[]byte("G5 5000\x00"),
			[]byte("Inspiron 5000\x00"),
		},

		SupportsRebar:     true,
		SupportsAbove4G:   true,
		SupportsMEDisable: true,
	})
}
