package registry

// DefaultDeployment is used when no deployment is selected.
const DefaultDeployment = "ui"

// Local development chain (anvil) used by all built-in deployments.
const localChainID = 31337

var builtinDefinitions = map[string]Definition{
	// First web client release: no quoter.
	"app": {
		ChainID: localChainID,
		Token0:  "0x700b6A60ce7EaaEA56F065753d8dcB9653dbAD35",
		Token1:  "0xA15BB66138824a1c7167f5E85b957d04Dd34E468",
		Pool:    "0xb19b36b1456E65E3A6D514D3F715f204BD59f431",
		Manager: "0x8ce361602B935680E8DeC218b820ff5056BeB7af",
		ABIs:    []string{"ERC20", "Pool", "Manager"},
	},
	"ui": {
		ChainID: localChainID,
		Token0:  "0x38AEa5f740A3865507a6C021EA69d0970a5269fC",
		Token1:  "0xbDc533eFC51dB6fa5A1a175770ec2566A114D998",
		Pool:    "0x1C934f1fc91a44EA99a43B63aF6B72B6F9f32334",
		Manager: "0x24C7466Ab15d52b3C75011B62F2aD9D20246fdC2",
		Quoter:  "0xD7314A78282Eb07106d572E63A002d58BF729f3c",
		ABIs:    []string{"ERC20", "Pool", "Manager", "Quoter"},
	},
	// Scripting client deployment: token0 is WETH, token1 is USDC.
	"client": {
		ChainID: localChainID,
		Token0:  "0x0E4B6314D9756D40EE0b3D68cF3999D29eEFb147",
		Token1:  "0x3C4249f1cDf4C5Ee12D480a543a6A42362baAAFf",
		Pool:    "0x3Be63776630ac9f282109352C804E650d515C604",
		Manager: "0x43992F5f575c28A1dE03b1F337974b94e44FAb8c",
		Quoter:  "0x5f474bC674b6Ad4d7b6A5c6429d586D53053DA33",
		ABIs:    []string{"ERC20", "Pool", "Manager", "Quoter"},
	},
}
