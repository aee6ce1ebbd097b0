// Package spiflash models the board's memory-mapped SPI-NOR flash
// controller: an execute-in-place quad read engine behind a word-addressed
// bus, and a software bit-bang override for the commands the engine cannot
// express. The mode register selects exactly one of the two as the driver
// of the shared flash pins.
//
// The model is cycle-stepped: one Step is one half SPI clock, every
// transition is atomic, and there is no concurrency between components,
// matching the single synchronous clock domain of the gateware. A
// pin-level NOR flash model is included so the full path from register
// write through pin edges to sampled data can be exercised without
// hardware.
//
// References:
//   - [picosoc]: PicoSoC SPI flash controller (https://github.com/YosysHQ/picorv32/tree/main/picosoc#spi-flash-controller-config-register)
//   - [W25Q80]: Winbond W25Q80DV Serial Flash Memory (https://www.winbond.com/resource-files/w25q80dv%20dl_revh_10022015.pdf)
package spiflash
