package platform

// Dell XPS 8940: Comet/Rocket Lake desktop on Z490/Z590, the strongest
// VRM of the supported models. Offsets inferred from the 5090 layout.
func init() {
	register(&Platform{
		ID:           "dell_xps_8940",
		Name:         "Dell XPS 8940",
		Codename:     "XPS 8940",
		Manufacturer: "Dell",
		PCH:          "Z490/Z590",

		SupportedCPUIDs: []uint32{
			0xA0655, // i9-10900K
			0xA0653, // i7-10700K
			0xA0671, // i9-11900K
			0xA0670, // i7-11700K
		},

		SustainedW: 125,
		BurstW:     150,
		MaxSafeW:   175,

		StaticOffsets: map[string]StaticOffset{
			"CfgLk":  {0x43, 1, "CFG Lock (MSR 0xE2)"},
			"OcLk":   {0x44, 1, "Overclocking Lock"},
			"PlLk":   {0x5E, 1, "Power Limit Lock"},
			"BiosLk": {0x5F, 1, "BIOS Interface Lock"},
			"Pl1L":   {0x66, 1, "PL1 Low Byte"},
			"Pl1H":   {0x67, 1, "PL1 High Byte"},
			"Pl2L":   {0x68, 1, "PL2 Low Byte"},
			"Pl2H":   {0x69, 1, "PL2 High Byte"},
			"Tau":    {0x6A, 1, "Turbo Time Window"},
			"VcOL":   {0x70, 1, "Vcore Offset Low"},
			"VcOH":   {0x71, 1, "Vcore Offset High"},
			"RgOL":   {0x74, 1, "Ring Offset Low"},
			"RgOH":   {0x75, 1, "Ring Offset High"},
			"SaOL":   {0x78, 1, "SA Offset Low"},
			"SaOH":   {0x79, 1, "SA Offset High"},
			"IoOL":   {0x7C, 1, "IO Offset Low"},
			"IoOH":   {0x7D, 1, "IO Offset High"},
			"A4G":    {0xD0, 1, "Above 4G Decoding"},
			"RBar":   {0xD1, 1, "Resizable BAR"},
			"MeEn":   {0x106, 1, "Management Engine"},
			"Hap":    {0x107, 1, "High Assurance Platform (ME Disable)"},
		},

		BIOSVersions: []string{"2.0.0", "2.1.0", "2.2.0", "2.3.0"},

		Signatures: [][]byte{
			[]byte("Dell Inc.\x00"),
			[]byte("XPS 8940\x00"),
		},

		SupportsRebar:     true,
		SupportsAbove4G:   true,
		SupportsMEDisable: true,
	})
}
