package domain

// ETHEREUM_ZERO_ADDRESS is the zero address, used by contracts to signal
// mint/burn transfers and absent owners
const ETHEREUM_ZERO_ADDRESS = "0x0000000000000000000000000000000000000000"
