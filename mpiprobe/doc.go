// Package mpiprobe locates an installed MPI library.
//
// Strategies are tried in order:
//   - msmpi: the MSMPI_INC and MSMPI_LIB64/MSMPI_LIB32 variables set by the
//     MS-MPI SDK, falling back to the HKLM\SOFTWARE\Microsoft\MPI registry key
//   - mpicc: the flags printed by "$MPICC -show" (default "mpicc"), with the
//     vendor banner from "--showme:version" or "-v"
//   - pkg-config: the mpich, ompi and mpi modules
//
// [Probe] caches its result for the life of the process. [ProbeWith] accepts
// options to substitute the command runner and environment, which is how the
// tests drive every strategy on any host.
package mpiprobe
